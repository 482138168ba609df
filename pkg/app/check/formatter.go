package check

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// FormatOutput formats check results according to output format
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatTable(w, response)
	default:
		return errors.Newf("unsupported output format: %s", format)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinIndices(indices []uint32) string {
	if len(indices) == 0 {
		return "-"
	}
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return strings.Join(parts, ",")
}

// formatTable formats results as tables
func formatTable(w io.Writer, response *Response) error {
	h := response.Header
	fmt.Fprintf(w, "Image: %s (%s", response.Image, response.Mode)
	if response.DryRun {
		fmt.Fprint(w, ", dry run")
	}
	fmt.Fprintln(w, ")")

	header := tablewriter.NewWriter(w)
	header.SetHeader([]string{"Field", "Value"})
	header.Append([]string{"Signature", h.Signature})
	header.Append([]string{"Framework version", h.FrameworkVersion})
	header.Append([]string{"Application", h.AppName})
	header.Append([]string{"Application version", h.AppVersion})
	header.Append([]string{"Stored elements", fmt.Sprintf("%d", h.ElementCount)})
	header.Append([]string{"Trusted", yesNo(h.Trusted)})
	if len(h.Failed) > 0 {
		header.Append([]string{"Failed checks", strings.Join(h.Failed, ", ")})
	}
	header.Render()

	s := response.Summary
	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"Result", "Elements"})
	summary.Append([]string{"Verified", joinIndices(s.Verified)})
	summary.Append([]string{"Built", joinIndices(s.Built)})
	summary.Append([]string{"Rebuilt", joinIndices(s.Rebuilt)})
	summary.Append([]string{"Failed", joinIndices(s.FailedIndices())})
	summary.Render()

	if len(s.Failed) > 0 {
		failed := tablewriter.NewWriter(w)
		failed.SetHeader([]string{"Element", "Task", "Failed checks"})
		for _, f := range s.Failed {
			failed.Append([]string{fmt.Sprintf("%d", f.Index), f.Task, strings.Join(f.Failed, ", ")})
		}
		failed.Render()
	}

	if len(response.Metrics) > 0 {
		metrics := tablewriter.NewWriter(w)
		metrics.SetHeader([]string{"Metric", "Role", "Value"})
		for _, m := range response.Metrics {
			metrics.Append([]string{m.Name, m.Labels["role"], fmt.Sprintf("%g", m.Value)})
		}
		metrics.Render()
	}

	fmt.Fprintf(w, "\n%s\n", FormatSummary(response))
	return nil
}

// formatJSON formats results as JSON
func formatJSON(w io.Writer, response *Response) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// formatYAML formats results as YAML
func formatYAML(w io.Writer, response *Response) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(response)
}

// FormatSummary provides a one line summary
func FormatSummary(response *Response) string {
	s := response.Summary
	summary := fmt.Sprintf("%d cached element", s.ElementCount)
	if s.ElementCount != 1 {
		summary += "s"
	}

	if n := len(s.Built) + len(s.Rebuilt); n > 0 {
		summary += fmt.Sprintf(", %d written", n)
	}
	if s.HeaderWritten {
		summary += ", header rewritten"
	}
	if s.Degraded() {
		summary += fmt.Sprintf(", %d failed", len(s.Failed))
	}

	return summary + fmt.Sprintf(" in %v", response.Elapsed)
}
