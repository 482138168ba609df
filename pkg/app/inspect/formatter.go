package inspect

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

func encode(w io.Writer, v interface{}, format string) (bool, error) {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return true, encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		encoder.SetIndent(2)
		return true, encoder.Encode(v)
	case "table":
		return false, nil
	default:
		return true, errors.Newf("unsupported output format: %s", format)
	}
}

func checkMark(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}

// FormatHeader formats a header response
func FormatHeader(w io.Writer, resp *HeaderResponse, format string) error {
	if done, err := encode(w, resp, format); done {
		return err
	}

	h := resp.Header
	c := resp.Checks
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value", "Check"})
	table.Append([]string{"Signature", h.Signature, checkMark(c.Signature)})
	table.Append([]string{"Framework version", h.FrameworkVersion, checkMark(c.FrameworkVersion)})
	table.Append([]string{"Application", h.AppName, checkMark(c.AppName)})
	table.Append([]string{"Application version", h.AppVersion, checkMark(c.AppVersion)})
	table.Append([]string{"Elements", fmt.Sprintf("%d", h.ElementCount), ""})
	table.Append([]string{"Checksum", fmt.Sprintf("0x%08X", h.Checksum), checkMark(c.Checksum)})
	table.Render()

	state := "trusted"
	if !resp.Trusted {
		state = "NOT trusted"
	}
	fmt.Fprintf(w, "\n%s: %d sectors, header %s\n", resp.Image, resp.VolumeSectors, state)
	return nil
}

// FormatList formats a list response
func FormatList(w io.Writer, resp *ListResponse, format string) error {
	if done, err := encode(w, resp, format); done {
		return err
	}

	if len(resp.Elements) == 0 {
		fmt.Fprintln(w, "The cache holds no elements.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Path", "Octets", "Sectors", "Modified", "CRC32C", "Info", "Data"})
	for _, e := range resp.Elements {
		span := "-"
		if e.SectorCount > 0 {
			span = fmt.Sprintf("%d-%d", e.SectorBegin, e.SectorEnd)
		}
		data := "-"
		if e.DataChecked {
			data = checkMark(e.DataValid)
		}
		table.Append([]string{
			fmt.Sprintf("%d", e.Index),
			e.Path,
			fmt.Sprintf("%d", e.Octets),
			span,
			e.Modified.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%08x", e.DataCRC),
			checkMark(e.InfoValid),
			data,
		})
	}
	table.Render()

	fmt.Fprintf(w, "\n%d elements in %s\n", len(resp.Elements), resp.Image)
	if !resp.Trusted {
		fmt.Fprintln(w, "warning: header identity does not match this build")
	}
	return nil
}

// FormatExtract formats an extract response
func FormatExtract(w io.Writer, resp *ExtractResponse, format string) error {
	if done, err := encode(w, resp, format); done {
		return err
	}

	fmt.Fprintf(w, "element %d (%s): %d bytes -> %s", resp.Index, resp.Path, resp.Octets, resp.Dest)
	if !resp.Verified {
		fmt.Fprint(w, " [checksum FAILED]")
	}
	fmt.Fprintln(w)
	return nil
}
