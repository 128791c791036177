package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/utkarsh5026/taskpool/internal/storage"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	faint  = color.New(color.Faint)
)

func colorPrintf(w io.Writer, c *color.Color, format string, a ...any) {
	_, _ = c.Fprintf(w, format, a...)
}

func renderAccounts(w io.Writer, accounts []storage.Account) {
	if len(accounts) == 0 {
		colorPrintf(w, faint, "No accounts attached.\n")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Name", "Blob Endpoint", "Auth")
	for _, acc := range accounts {
		auth := "azure ad"
		if acc.HasKey() {
			auth = acc.Key.KeyName
		}
		_ = table.Append(acc.Name, acc.Endpoints.Blob, auth)
	}
	_ = table.Render()
}

func renderHostingStatus(w io.Writer, statuses []storage.HostingStatus) {
	table := tablewriter.NewWriter(w)
	table.Header("Account", "Static Website", "Index Document", "404 Document", "Time")
	for _, st := range statuses {
		_ = table.Append(
			st.Account,
			hostingLabel(st),
			st.IndexDocument,
			st.ErrorDocument404Path,
			formatElapsed(st.Elapsed),
		)
	}
	_ = table.Render()
}

func renderEndpointChecks(w io.Writer, checks []storage.EndpointCheck) {
	for _, c := range checks {
		if c.Reachable() {
			colorPrintf(w, green, "  ✓ %-6s %s\n", c.Service, c.Endpoint)
		} else {
			colorPrintf(w, red, "  ✗ %-6s %s (%v)\n", c.Service, c.Endpoint, c.Err)
		}
	}
}

func hostingLabel(st storage.HostingStatus) string {
	switch {
	case st.Err != nil:
		return red.Sprintf("error: %v", st.Err)
	case !st.Capable:
		return faint.Sprint("not supported")
	case st.Enabled:
		return green.Sprint("enabled")
	default:
		return yellow.Sprint("disabled")
	}
}

func formatElapsed(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}
