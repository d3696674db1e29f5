// internal/output/table.go
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tamzrod/modbus-bridge/internal/poller"
)

// RenderPoll prints one table per poll round to w (stdout when nil).
func RenderPoll(w io.Writer, results []poller.PollResult) {
	if w == nil {
		w = os.Stdout
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Device", "Reference", "Object", "Address", "Value"})

	for _, res := range results {
		if res.Err != nil {
			t.AppendRow(table.Row{res.Device, "-", "-", "-", "error: " + res.Err.Error()})
			continue
		}
		for _, v := range res.Values {
			t.AppendRow(table.Row{res.Device, v.Name, v.ObjectType, v.Address, format(v.Value)})
		}
	}

	t.Render()
}

func format(v any) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%g", f)
	}
	return fmt.Sprint(v)
}
