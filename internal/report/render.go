package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/getbuf/internal/pipeline"
)

// Format selects a rendering.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat validates a format name. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatMarkdown, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (want text, json, markdown or html)", s)
}

// Render produces JSON when asJSON is set, human-readable text otherwise.
func Render(res *pipeline.Result, asJSON bool) (string, error) {
	if asJSON {
		return RenderFormat(res, FormatJSON)
	}
	return RenderFormat(res, FormatText)
}

// RenderFormat renders res in the given format. It has no side effects.
func RenderFormat(res *pipeline.Result, f Format) (string, error) {
	if res == nil {
		return "", fmt.Errorf("render: nil result")
	}
	switch f {
	case FormatText, "":
		return renderText(res), nil
	case FormatJSON:
		b, err := json.MarshalIndent(NewDocument(res), "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode report: %w", err)
		}
		return string(b) + "\n", nil
	case FormatMarkdown:
		return renderMarkdown(res), nil
	case FormatHTML:
		return renderHTML(res)
	}
	return "", fmt.Errorf("unknown report format %q", f)
}

func renderText(res *pipeline.Result) string {
	var b strings.Builder
	if res.Success {
		fmt.Fprintf(&b, "OK: %s\n", res.Message)
	} else {
		fmt.Fprintf(&b, "FAILED [%s]: %s\n", res.Category, res.Message)
	}
	if res.OutputDir != "" {
		fmt.Fprintf(&b, "  output:   %s\n", res.OutputDir)
	}
	for _, d := range res.CleanedDirs {
		fmt.Fprintf(&b, "  cleaned:  %s\n", d)
	}
	if inv := res.Invocation; inv != nil {
		fmt.Fprintf(&b, "  command:  %s\n", strings.Join(inv.Argv, " "))
		fmt.Fprintf(&b, "  exit:     %d (%s)\n", inv.ExitCode, inv.Duration.Round(time.Millisecond))
	}
	if n := len(res.WrittenFiles); n > 0 {
		fmt.Fprintf(&b, "  written:  %d file(s)\n", n)
	}
	for _, hf := range res.HookFailures {
		fmt.Fprintf(&b, "  hook:     %s #%d %q: %v\n", hf.Stage, hf.Index, hf.Name, hf.Cause)
	}
	if inv := res.Invocation; inv != nil && !res.Success && strings.TrimSpace(inv.Stderr) != "" {
		b.WriteString("  stderr:\n")
		for _, line := range strings.Split(strings.TrimRight(inv.Stderr, "\n"), "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	return b.String()
}

func renderMarkdown(res *pipeline.Result) string {
	var b strings.Builder
	status := "✅ success"
	if !res.Success {
		status = fmt.Sprintf("❌ %s", res.Category)
	}
	fmt.Fprintf(&b, "## getbuf run `%s`\n\n", res.RunID)
	fmt.Fprintf(&b, "%s\n\n", res.Message)
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Status | %s |\n", status)
	fmt.Fprintf(&b, "| Exit code | %d |\n", res.ExitCode)
	fmt.Fprintf(&b, "| Output | `%s` |\n", res.OutputDir)
	fmt.Fprintf(&b, "| Files written | %d |\n", len(res.WrittenFiles))
	if v := res.Telemetry.ToolVersion; v != "" {
		fmt.Fprintf(&b, "| buf | %s |\n", v)
	}
	if v := res.Telemetry.PluginVersion; v != "" {
		fmt.Fprintf(&b, "| Plugin | %s |\n", v)
	}
	if len(res.HookFailures) > 0 {
		b.WriteString("\n### Hook failures\n\n")
		for _, hf := range res.HookFailures {
			fmt.Fprintf(&b, "- `%s` #%d **%s**: %v\n", hf.Stage, hf.Index, hf.Name, hf.Cause)
		}
	}
	if inv := res.Invocation; inv != nil && strings.TrimSpace(inv.Stderr) != "" {
		b.WriteString("\n### Compiler output\n\n```\n")
		b.WriteString(strings.TrimRight(inv.Stderr, "\n"))
		b.WriteString("\n```\n")
	}
	return b.String()
}

func renderHTML(res *pipeline.Result) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(renderMarkdown(res)), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
