package generator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/robert-at-pretension-io/hdlgen/internal/config"
	"github.com/robert-at-pretension-io/hdlgen/internal/preserve"
)

const socDesign = `
name: soc
description: Two-block test system
top:
  name: soc
  ports:
    - {name: clk, direction: in}
components:
  - name: sender
    ports:
      - {name: clk, direction: in}
      - {name: data, direction: out, left: "7", right: "0"}
    interfaces:
      - name: tx
        portMaps:
          - logical: {name: DATA}
            physical: {name: data}
  - name: receiver
    ports:
      - {name: clk, direction: in}
      - {name: data, direction: in, left: "7", right: "0"}
    interfaces:
      - name: rx
        portMaps:
          - logical: {name: DATA}
            physical: {name: data}
instances:
  - {name: u_send, component: sender}
  - {name: u_recv, component: receiver}
connections:
  - type: interface
    endpoints:
      - {instance: u_send, interface: tx}
      - {instance: u_recv, interface: rx}
  - type: adhoc
    name: clk
    endpoints:
      - {port: clk}
      - {instance: u_send, port: clk}
      - {instance: u_recv, port: clk}
`

func writeDesign(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write design: %v", err)
	}
	return path
}

func testConfig(root string, cacheEnabled bool) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Analysis.Cache.Dir = filepath.Join(root, ".cache")
	enabled := cacheEnabled
	cfg.Analysis.Cache.Enabled = &enabled
	cfg.Analysis.MaxParallel = 2
	return cfg
}

func runForTest(t *testing.T, g *Generator, root string, files ...string) *Result {
	t.Helper()
	result, err := g.Run(context.Background(), root, files...)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRunGeneratesModule(t *testing.T) {
	root := t.TempDir()
	writeDesign(t, root, "soc.design.yaml", socDesign)

	result := runForTest(t, NewWithConfig(testConfig(root, false)), root)

	if len(result.Designs) != 1 {
		t.Fatalf("designs = %+v", result.Designs)
	}
	res := result.Designs[0]
	out := filepath.Join(root, "rtl", "soc.v")
	if res.Status != StatusGenerated || res.Output != out || res.Design != "soc" {
		t.Errorf("design result = %+v", res)
	}
	if res.Signals != 1 || res.Instances != 2 || res.Preserved {
		t.Errorf("design counts = %+v", res)
	}

	text := readFile(t, out)
	for _, want := range []string{
		"// File          : soc.v\n",
		"// Description   : Two-block test system\n",
		"// whose design file is soc.design.yaml\n",
		"module soc(\n",
		"u_send_to_u_recv_DATA;\n",
		"        // These ports are not in any interface\n        .clk                 (clk));\n",
		preserve.Marker + "\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	if len(result.Violations) != 0 {
		t.Errorf("unexpected violations: %+v", result.Violations)
	}
	if result.Summary.Generated != 1 || result.Summary.Designs != 1 {
		t.Errorf("summary = %+v", result.Summary)
	}
	if len(result.Tables.Designs) != 1 {
		t.Errorf("fact tables = %+v", result.Tables.Designs)
	}
}

func TestRunKeepsImplementation(t *testing.T) {
	root := t.TempDir()
	writeDesign(t, root, "soc.design.yaml", socDesign)
	out := filepath.Join(root, "rtl", "soc.v")

	runForTest(t, NewWithConfig(testConfig(root, false)), root)

	body := "    assign probe = u_send_to_u_recv_DATA[0];"
	edited := strings.Replace(readFile(t, out), preserve.Marker+"\n", preserve.Marker+"\n"+body+"\n", 1)
	if err := os.WriteFile(out, []byte(edited), 0o644); err != nil {
		t.Fatalf("edit output: %v", err)
	}

	result := runForTest(t, NewWithConfig(testConfig(root, false)), root)
	res := result.Designs[0]
	if res.Status != StatusUnchanged || !res.Preserved {
		t.Errorf("second run = %+v", res)
	}
	if got := readFile(t, out); got != edited {
		t.Errorf("implementation lost:\n%s", got)
	}

	// a design change rewrites the generated region only
	changed := strings.Replace(socDesign, "Two-block test system", "Revised system", 1)
	writeDesign(t, root, "soc.design.yaml", changed)
	result = runForTest(t, NewWithConfig(testConfig(root, false)), root)
	if result.Designs[0].Status != StatusGenerated {
		t.Errorf("third run = %+v", result.Designs[0])
	}
	got := readFile(t, out)
	if !strings.Contains(got, "Revised system") || !strings.Contains(got, body+"\nendmodule\n") {
		t.Errorf("regenerated file:\n%s", got)
	}
}

func TestRunCache(t *testing.T) {
	root := t.TempDir()
	writeDesign(t, root, "soc.design.yaml", socDesign)
	out := filepath.Join(root, "rtl", "soc.v")

	first := runForTest(t, NewWithConfig(testConfig(root, true)), root)
	if first.Designs[0].Status != StatusGenerated {
		t.Fatalf("first run = %+v", first.Designs[0])
	}
	if _, err := os.Stat(filepath.Join(root, ".cache", "index.json")); err != nil {
		t.Fatalf("cache index not written: %v", err)
	}

	second := runForTest(t, NewWithConfig(testConfig(root, true)), root)
	res := second.Designs[0]
	if res.Status != StatusCached || res.Design != "soc" || res.Output != out || res.Signals != 1 {
		t.Errorf("second run = %+v", res)
	}
	if second.Tables.Len() != first.Tables.Len() {
		t.Errorf("cached tables have %d rows, want %d", second.Tables.Len(), first.Tables.Len())
	}

	// editing the output invalidates the entry
	edited := strings.Replace(readFile(t, out), preserve.Marker+"\n", preserve.Marker+"\n    // note\n", 1)
	if err := os.WriteFile(out, []byte(edited), 0o644); err != nil {
		t.Fatalf("edit output: %v", err)
	}
	third := runForTest(t, NewWithConfig(testConfig(root, true)), root)
	if third.Designs[0].Status != StatusUnchanged {
		t.Errorf("third run = %+v", third.Designs[0])
	}

	// so does a config change that alters the output
	cfg := testConfig(root, true)
	cfg.Output.Author = "someone"
	fourth := runForTest(t, NewWithConfig(cfg), root)
	if fourth.Designs[0].Status != StatusGenerated {
		t.Errorf("fourth run = %+v", fourth.Designs[0])
	}
	if !strings.Contains(readFile(t, out), "// Created by    : someone\n") {
		t.Errorf("author not written")
	}
}

func TestRunCollectsDesignErrors(t *testing.T) {
	root := t.TempDir()
	writeDesign(t, root, "a_soc.design.yaml", socDesign)
	writeDesign(t, root, "b_bad.design.yaml", "top:\n  name: bad\n  ports:\n    - {name: x, direction: sideways}\n")
	writeDesign(t, root, "c_dup.design.yaml", "top:\n  name: soc\n")
	writeDesign(t, root, "d_broken.design.json", "{not json")

	result, err := NewWithConfig(testConfig(root, false)).Run(context.Background(), root)
	if err == nil {
		t.Fatal("expected pipeline error")
	}
	if !strings.HasPrefix(err.Error(), "pipeline errors:") {
		t.Errorf("error = %v", err)
	}
	if result == nil || len(result.Designs) != 4 {
		t.Fatalf("result = %+v", result)
	}

	want := []string{StatusGenerated, StatusFailed, StatusFailed, StatusFailed}
	for i, res := range result.Designs {
		if res.Status != want[i] {
			t.Errorf("%s status = %s, want %s (%s)", filepath.Base(res.Source), res.Status, want[i], res.Error)
		}
	}
	if !strings.Contains(result.Designs[1].Error, "validate") {
		t.Errorf("schema failure = %q", result.Designs[1].Error)
	}
	if !strings.Contains(result.Designs[2].Error, "also generated from") {
		t.Errorf("duplicate output failure = %q", result.Designs[2].Error)
	}
	if result.Summary.Failed != 3 || result.Summary.Generated != 1 {
		t.Errorf("summary = %+v", result.Summary)
	}
	if len(result.Tables.Designs) != 1 {
		t.Errorf("failed designs reached the fact tables: %+v", result.Tables.Designs)
	}
}

func TestRunPolicyViolations(t *testing.T) {
	root := t.TempDir()
	writeDesign(t, root, "lone.design.yaml", `
top: {name: lone}
components:
  - name: leaf
    ports:
      - {name: en, direction: in}
instances:
  - {name: u_leaf, component: leaf}
`)

	result := runForTest(t, NewWithConfig(testConfig(root, false)), root)
	if len(result.Violations) != 1 {
		t.Fatalf("violations = %+v", result.Violations)
	}
	v := result.Violations[0]
	if v.Rule != "unconnected_input" || v.Instance != "u_leaf" || v.Port != "en" || v.Design != "lone" {
		t.Errorf("violation = %+v", v)
	}
	if result.Summary.Warnings != 1 {
		t.Errorf("summary = %+v", result.Summary)
	}
}

func TestRunExplicitFilesAndOutputPath(t *testing.T) {
	root := t.TempDir()
	path := writeDesign(t, root, "designs/soc.design.json", `{"top": {"name": "soc"}, "output": "gen/custom.v"}`)
	writeDesign(t, root, "other.design.yaml", socDesign)

	result := runForTest(t, NewWithConfig(testConfig(root, false)), root, path)
	if len(result.Designs) != 1 {
		t.Fatalf("designs = %+v", result.Designs)
	}
	if got, want := result.Designs[0].Output, filepath.Join(root, "gen", "custom.v"); got != want {
		t.Errorf("output = %s, want %s", got, want)
	}
	if !strings.Contains(readFile(t, filepath.Join(root, "gen", "custom.v")), "module soc();\n") {
		t.Error("custom output not written")
	}
	if _, err := os.Stat(filepath.Join(root, "rtl")); !os.IsNotExist(err) {
		t.Errorf("unlisted design was generated")
	}
}

func TestRunTimestamp(t *testing.T) {
	root := t.TempDir()
	writeDesign(t, root, "soc.design.yaml", socDesign)
	cfg := testConfig(root, false)
	cfg.Output.Timestamp = true

	g := NewWithConfig(cfg)
	g.Now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
	runForTest(t, g, root)

	text := readFile(t, filepath.Join(root, "rtl", "soc.v"))
	if !strings.Contains(text, "// Creation date : 09.03.2024\n// Creation time : 14:05:07\n") {
		t.Errorf("timestamp missing:\n%s", text)
	}
}

func TestTimingJSONLWritten(t *testing.T) {
	root := t.TempDir()
	writeDesign(t, root, "soc.design.yaml", socDesign)
	timingPath := filepath.Join(root, "timing.jsonl")

	g := NewWithConfig(testConfig(root, false))
	g.Timing = true
	g.TimingPath = timingPath
	runForTest(t, g, root)

	raw, err := os.ReadFile(timingPath)
	if err != nil {
		t.Fatalf("read timing file: %v", err)
	}

	found := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		var ev timingEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("parse timing event: %v", err)
		}
		found[ev.Kind+"/"+ev.Phase] = true
		if ev.EndMS < ev.StartMS {
			t.Errorf("event ends before it starts: %+v", ev)
		}
	}
	for _, want := range []string{"stage/scan", "stage/prepare", "design/prepare", "stage/policy", "stage/total"} {
		if !found[want] {
			t.Errorf("missing timing event %s", want)
		}
	}
}

func TestCollectWritesNothing(t *testing.T) {
	root := t.TempDir()
	writeDesign(t, root, "soc.design.yaml", socDesign)

	tables, err := NewWithConfig(testConfig(root, false)).Collect(context.Background(), root)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(tables.Designs) != 1 || len(tables.Signals) != 1 || tables.Signals[0].Name != "u_send_to_u_recv_DATA" {
		t.Errorf("tables = %+v", tables)
	}
	if _, err := os.Stat(filepath.Join(root, "rtl")); !os.IsNotExist(err) {
		t.Error("Collect wrote output")
	}

	writeDesign(t, root, "bad.design.yaml", "top: {name: 7bad}\n")
	if _, err := NewWithConfig(testConfig(root, false)).Collect(context.Background(), root); err == nil {
		t.Error("expected error for invalid design")
	}
}
