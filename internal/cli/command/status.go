package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/guardian/internal/cli/connection"
	"github.com/yndnr/guardian/internal/cli/output"
)

// StatusCommand shows the control loop state of a running daemon.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "show the state of a running daemon",
		Action: runStatus,
	}
}

func runStatus(c *cli.Context) error {
	flags := ParseGlobalFlags(c)
	ctx, cancel := context.WithTimeout(c.Context, connection.DefaultTimeout)
	defer cancel()

	st, err := newClient(c).Status(ctx)
	if err != nil {
		return err
	}
	if flags.Output != output.FormatTable {
		return render(c, st)
	}

	w := stdout(c)
	t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("state", st.State.String())
	t.AddRow("uptime", time.Since(st.StartedAt).Truncate(time.Second).String())
	if st.Session != nil {
		t.AddRow("session", st.Session.ID)
		t.AddRow("device", st.Session.Device.String())
		t.AddRow("authenticated", fmt.Sprint(st.Session.Authenticated))
	}
	if st.LastDevice != nil {
		t.AddRow("last device", st.LastDevice.String())
	}
	t.AddRow("sessions", fmt.Sprint(st.Sessions))
	t.AddRow("auth failures", fmt.Sprint(st.AuthFailures))
	t.AddRow("commands", fmt.Sprint(st.Commands))
	if st.LastCommand != "" {
		t.AddRow("last command", st.LastCommand+" at "+st.LastCommandAt.Local().Format(time.DateTime))
	}
	if st.LastError != "" {
		t.AddRow("last error", st.LastError)
	}
	return t.Render(w)
}
