package preserve

import (
	stderrors "errors"
	"testing"

	"github.com/robert-at-pretension-io/hdlgen/internal/errors"
)

const header = "module TestComponent #(\n" +
	"    parameter                              dataWidth        = 8,\n" +
	"    parameter                              freq             = 100000\n" +
	") (\n" +
	"    // These ports are not in any interface\n" +
	"    input                               clk,\n" +
	"    input          [7:0]                dataIn,\n" +
	"    input                               rst_n,\n" +
	"    output         [7:0]                dataOut\n" +
	");\n"

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantBody string
		wantPost string
	}{
		{
			name:     "plain body",
			text:     header + "foo\nbar\nendmodule\n",
			wantBody: "foo\nbar",
		},
		{
			name: "keywords in comments",
			text: "module TestComponent #(\n" +
				"    parameter                              dataWidth        = 8, // module ending );\n" +
				"    parameter                              freq             = 100000 /* ending module header );\n" +
				") (\n" +
				"    input                               clk\n" +
				");\n" +
				"foo\nbar\nendmodule\n",
			wantBody: "foo\nbar",
		},
		{
			name:     "marker",
			text:     header + "    wire [7:0]  x;\n" + Marker + "\nfoo\nbar\nendmodule\n",
			wantBody: "foo\nbar",
		},
		{
			name:     "without parameters",
			text:     "module TestComponent(\n    input clk\n);\ndataOut <= rst_n & clk\nbar\nbaz\nendmodule\n",
			wantBody: "dataOut <= rst_n & clk\nbar\nbaz",
		},
		{
			name:     "without ports",
			text:     "module TestComponent();\ndataOut <= rst_n & clk\nendmodule\n",
			wantBody: "dataOut <= rst_n & clk",
		},
		{
			name: "instantiation in body",
			text: header + "foo\nbar\n\n" +
				"// IP-XACT VLNV: tut.fi:ip.hw:TestIntitializer:1.0\n" +
				"TestIntitializer #(\n" +
				".WAIT_TIME           (2100))\n" +
				"TestIntitializer_0(\n" +
				".done                (done),\n" +
				".start\n" +
				");" +
				"endmodule",
			wantBody: "foo\nbar\n\n" +
				"// IP-XACT VLNV: tut.fi:ip.hw:TestIntitializer:1.0\n" +
				"TestIntitializer #(\n" +
				".WAIT_TIME           (2100))\n" +
				"TestIntitializer_0(\n" +
				".done                (done),\n" +
				".start\n" +
				");",
		},
		{
			name: "post module text",
			text: header + "foo\nbar\nendmodule\n" +
				"lrem ipsum\n// Bogus copy paste stuff\nfoo\nbar",
			wantBody: "foo\nbar",
			wantPost: "lrem ipsum\n// Bogus copy paste stuff\nfoo\nbar",
		},
		{
			name:     "indented body keeps indentation",
			text:     header + Marker + "\n\n\n    assign a = b;\n\n\nendmodule\n",
			wantBody: "    assign a = b;",
		},
		{
			name:     "empty body after marker",
			text:     "module top();\n\n" + Marker + "\nendmodule\n",
			wantBody: "",
		},
		{
			name:     "keywords in string literals",
			text:     header + Marker + "\n    initial $display(\"endmodule\");\n    assign x = a;\nendmodule\n",
			wantBody: "    initial $display(\"endmodule\");\n    assign x = a;",
		},
		{
			name:     "module in a string literal",
			text:     header + "initial $display(\"module \\\"top\\\" ready\");\nendmodule\n",
			wantBody: "initial $display(\"module \\\"top\\\" ready\");",
		},
		{
			name:     "generated region may name a parameter module",
			text:     "module top #(\n    parameter module = 10\n) ();\n\n    wire [module*2:0] w;\n\n" + Marker + "\nfoo\nendmodule\n",
			wantBody: "foo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			impl, err := Select(tt.text)
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if impl.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", impl.Body, tt.wantBody)
			}
			if impl.PostModule != tt.wantPost {
				t.Errorf("PostModule = %q, want %q", impl.PostModule, tt.wantPost)
			}
		})
	}
}

func TestSelectFailures(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{
			name: "too many modules",
			text: header + "foo\nbar\nendmodule\nmodule MasterComponent (\n    input iii\n);\nfoo\nendmodule",
			want: errors.ErrMultipleModules,
		},
		{
			name: "nested module",
			text: header + "module inner();\nendmodule\n",
			want: errors.ErrMultipleModules,
		},
		{
			name: "no module",
			text: "// module only in a comment\nfoo\nbar\nendmodule\n",
			want: errors.ErrNoModule,
		},
		{
			name: "no header end",
			text: "module TestComponent(\n    input clk\n\nfoo\nendmodule\n",
			want: errors.ErrNoHeaderEnd,
		},
		{
			name: "no module end",
			text: header + "foo\nbar\n",
			want: errors.ErrNoModuleEnd,
		},
		{
			name: "empty file",
			text: "",
			want: errors.ErrNoModule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			impl, err := Select(tt.text)
			if err == nil {
				t.Fatalf("Select() = %+v, want error", impl)
			}
			if !stderrors.Is(err, tt.want) {
				t.Errorf("Select() error = %v, want %v", err, tt.want)
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Phase != errors.PhasePreserve {
				t.Errorf("error %v is not a preserve *errors.Error", err)
			}
		})
	}
}

func TestMaskComments(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a // b\nc", "a     \nc"},
		{"a /* b */ c", "a         c"},
		{"a /* b\nc", "a     \nc"},
		{"a / b", "a / b"},
		{`s = "a // b"; // c`, `s = "a // b";     `},
	}
	for _, tt := range tests {
		if got := MaskComments(tt.in); got != tt.want {
			t.Errorf("MaskComments(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskLiterals(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`$display("endmodule");`, `$display("         ");`},
		{`"a\"b" x`, `"    " x`},
		{"\"open\nx", "\"    \nx"},
		{`"a" // "b"`, `" "       `},
	}
	for _, tt := range tests {
		if got := MaskLiterals(tt.in); got != tt.want {
			t.Errorf("MaskLiterals(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
