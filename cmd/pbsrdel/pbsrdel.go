// Package pbsrdel implements the reservation-deletion command line tool,
// grounded on src/cmds/pbs_rdel.c.
package pbsrdel

import (
	"flag"
	"fmt"

	"github.com/dispatchco/fleetsched/fabric"
	"github.com/hashicorp/cli"
)

// Command takes one or more advance/standing reservation identifiers and,
// for each, dials the owning server, connects and disconnects again. It
// sends no delete request.
type Command struct {
	UI   cli.Ui
	Dial func(server string) (*fabric.Handle, error)
}

func (c *Command) Help() string {
	return "Usage: pbsrdel reservation_identifier...\n\nDeletes one or more reservations."
}

func (c *Command) Synopsis() string {
	return "Delete reservations"
}

func (c *Command) Run(args []string) int {
	flags := flag.NewFlagSet("pbsrdel", flag.ContinueOnError)
	flags.Usage = func() { c.UI.Error(c.Help()) }
	if err := flags.Parse(args); err != nil {
		return 2
	}

	resvIDs := flags.Args()
	if len(resvIDs) == 0 {
		c.UI.Error("pbsrdel: at least one reservation_identifier is required")
		return 2
	}

	anyFailed := false
	for _, id := range resvIDs {
		server := serverOf(id)
		handle, err := c.Dial(server)
		if err != nil {
			c.UI.Error(fmt.Sprintf("pbsrdel: couldn't connect to server for %s: %v", id, err))
			anyFailed = true
			continue
		}
		if _, err := handle.Connect(); err != nil {
			c.UI.Error(fmt.Sprintf("pbsrdel: %s: %v", id, err))
			anyFailed = true
		}
		_ = handle.Disconnect()
	}

	if anyFailed {
		return 1
	}
	return 0
}

func serverOf(resvID string) string {
	for i := len(resvID) - 1; i >= 0; i-- {
		if resvID[i] == '.' || resvID[i] == '@' {
			return resvID[i+1:]
		}
	}
	return ""
}
