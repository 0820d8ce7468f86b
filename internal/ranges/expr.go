package ranges

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits a constant expression into tokens
func tokenize(expr string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || c == '\'':
			j := i
			for j < len(expr) && (isDigit(expr[j]) || expr[j] == '_') {
				j++
			}
			if j < len(expr) && expr[j] == '\'' {
				j++
				if j < len(expr) && (expr[j] == 's' || expr[j] == 'S') {
					j++
				}
				if j >= len(expr) || !strings.ContainsRune("bBoOdDhH", rune(expr[j])) {
					return nil, fmt.Errorf("malformed based literal at %d", i)
				}
				j++
				for j < len(expr) && (isHexDigit(expr[j]) || expr[j] == '_' || strings.ContainsRune("xXzZ?", rune(expr[j]))) {
					j++
				}
			} else if j < len(expr) && (expr[j] == 'x' || expr[j] == 'X') && expr[i:j] == "0" {
				j++
				for j < len(expr) && (isHexDigit(expr[j]) || expr[j] == '_') {
					j++
				}
			}
			toks = append(toks, token{kind: tokNumber, text: expr[i:j]})
			i = j
		case isIdentStart(c) || c == '$':
			j := i + 1
			for j < len(expr) && isIdentChar(expr[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: expr[i:j]})
			i = j
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "("})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")"})
			i++
		default:
			if i+1 < len(expr) {
				two := expr[i : i+2]
				if two == "**" || two == "<<" || two == ">>" {
					toks = append(toks, token{kind: tokOp, text: two})
					i += 2
					continue
				}
			}
			if strings.ContainsRune("+-*/%", rune(c)) {
				toks = append(toks, token{kind: tokOp, text: string(c)})
				i++
				continue
			}
			return nil, fmt.Errorf("unexpected character %q at %d", c, i)
		}
	}
	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '$'
}

// ParseLiteral parses a decimal, 0x-prefixed or Verilog based integer literal.
// Literals containing x/z digits are not numeric.
func ParseLiteral(text string) (int64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(text), "_", "")
	if s == "" {
		return 0, false
	}
	if idx := strings.IndexByte(s, '\''); idx >= 0 {
		if idx > 0 {
			if _, err := strconv.ParseUint(s[:idx], 10, 32); err != nil {
				return 0, false
			}
		}
		rest := s[idx+1:]
		if rest != "" && (rest[0] == 's' || rest[0] == 'S') {
			rest = rest[1:]
		}
		if len(rest) < 2 {
			return 0, false
		}
		base := 10
		switch rest[0] {
		case 'b', 'B':
			base = 2
		case 'o', 'O':
			base = 8
		case 'h', 'H':
			base = 16
		}
		v, err := strconv.ParseInt(rest[1:], base, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 64)
		return v, err == nil
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

// IsNumericLiteral reports whether text is a single integer literal
func IsNumericLiteral(text string) bool {
	_, ok := ParseLiteral(text)
	return ok
}

type parser struct {
	toks  []token
	pos   int
	scope *Scope
}

// Evaluate computes the integer value of a constant expression.
// Identifiers must name parameters (by identifier or name) whose values are
// numeric literals; any other operand makes the expression symbolic.
func Evaluate(expr string, scope *Scope) (int64, bool) {
	if scope != nil {
		expr = scope.Substitute(expr)
	}
	toks, err := tokenize(expr)
	if err != nil {
		return 0, false
	}
	p := &parser{toks: toks, scope: scope}
	v, err := p.shift()
	if err != nil || p.peek().kind != tokEOF {
		return 0, false
	}
	return v, true
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) shift() (int64, error) {
	left, err := p.additive()
	if err != nil {
		return 0, err
	}
	for p.peek().kind == tokOp && (p.peek().text == "<<" || p.peek().text == ">>") {
		op := p.next().text
		right, err := p.additive()
		if err != nil {
			return 0, err
		}
		if right < 0 || right > 63 {
			return 0, fmt.Errorf("shift amount %d out of range", right)
		}
		if op == "<<" {
			v := left << uint(right)
			if v>>uint(right) != left {
				return 0, errOverflow
			}
			left = v
		} else {
			left >>= uint(right)
		}
	}
	return left, nil
}

func (p *parser) additive() (int64, error) {
	left, err := p.multiplicative()
	if err != nil {
		return 0, err
	}
	for p.peek().kind == tokOp && (p.peek().text == "+" || p.peek().text == "-") {
		op := p.next().text
		right, err := p.multiplicative()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			left, err = add(left, right)
		} else {
			left, err = sub(left, right)
		}
		if err != nil {
			return 0, err
		}
	}
	return left, nil
}

func (p *parser) multiplicative() (int64, error) {
	left, err := p.power()
	if err != nil {
		return 0, err
	}
	for p.peek().kind == tokOp && isMulOp(p.peek().text) {
		op := p.next().text
		right, err := p.power()
		if err != nil {
			return 0, err
		}
		switch op {
		case "*":
			if left, err = mul(left, right); err != nil {
				return 0, err
			}
		case "/":
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			if left == math.MinInt64 && right == -1 {
				return 0, errOverflow
			}
			left /= right
		case "%":
			if right == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			left %= right
		}
	}
	return left, nil
}

func isMulOp(op string) bool {
	return op == "*" || op == "/" || op == "%"
}

func (p *parser) power() (int64, error) {
	base, err := p.unary()
	if err != nil {
		return 0, err
	}
	if p.peek().kind == tokOp && p.peek().text == "**" {
		p.next()
		exp, err := p.power()
		if err != nil {
			return 0, err
		}
		if exp < 0 {
			return 0, fmt.Errorf("negative exponent")
		}
		return pow(base, exp)
	}
	return base, nil
}

func (p *parser) unary() (int64, error) {
	if p.peek().kind == tokOp && (p.peek().text == "-" || p.peek().text == "+") {
		op := p.next().text
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		if op == "-" {
			if v == math.MinInt64 {
				return 0, errOverflow
			}
			return -v, nil
		}
		return v, nil
	}
	return p.primary()
}

func (p *parser) primary() (int64, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, ok := ParseLiteral(t.text)
		if !ok {
			return 0, fmt.Errorf("non-numeric literal %q", t.text)
		}
		return v, nil
	case tokIdent:
		if t.text == "$clog2" {
			if p.next().kind != tokLParen {
				return 0, fmt.Errorf("expected ( after $clog2")
			}
			arg, err := p.shift()
			if err != nil {
				return 0, err
			}
			if p.next().kind != tokRParen {
				return 0, fmt.Errorf("expected ) after $clog2 argument")
			}
			return clog2(arg), nil
		}
		if p.scope == nil {
			return 0, fmt.Errorf("unresolved identifier %q", t.text)
		}
		param, ok := p.scope.Lookup(t.text)
		if !ok {
			return 0, fmt.Errorf("unresolved identifier %q", t.text)
		}
		v, ok := ParseLiteral(param.Value)
		if !ok {
			return 0, fmt.Errorf("parameter %q is not a numeric literal", param.Name)
		}
		return v, nil
	case tokLParen:
		v, err := p.shift()
		if err != nil {
			return 0, err
		}
		if p.next().kind != tokRParen {
			return 0, fmt.Errorf("expected )")
		}
		return v, nil
	}
	return 0, fmt.Errorf("unexpected token %q", t.text)
}

func clog2(v int64) int64 {
	if v <= 1 {
		return 0
	}
	return int64(bits.Len64(uint64(v - 1)))
}

var errOverflow = errors.New("integer overflow")

func add(a, b int64) (int64, error) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, errOverflow
	}
	return s, nil
}

func sub(a, b int64) (int64, error) {
	d := a - b
	if (b > 0 && d > a) || (b < 0 && d < a) {
		return 0, errOverflow
	}
	return d, nil
}

func mul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, errOverflow
	}
	p := a * b
	if p/b != a {
		return 0, errOverflow
	}
	return p, nil
}

// pow computes base**exp by squaring
func pow(base, exp int64) (int64, error) {
	result := int64(1)
	var err error
	for exp > 0 {
		if exp&1 == 1 {
			if result, err = mul(result, base); err != nil {
				return 0, err
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, err = mul(base, base); err != nil {
				return 0, err
			}
		}
	}
	return result, nil
}
