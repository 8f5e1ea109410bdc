// Package qdel implements the job-deletion command line tool, grounded
// on src/cmds/qdel.c: group the requested job identifiers by the server
// that owns each, then dial each server and call deleteOne per job (which
// connects but sends no delete request).
package qdel

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/dispatchco/fleetsched/fabric"
	"github.com/hashicorp/cli"
)

// Command implements qdel's CLI surface: delete one or more jobs, with
// -W force|suppress_email=N and -x (delete job history) flags mirroring
// qdel.c's GETOPT_ARGS "W:x".
type Command struct {
	UI cli.Ui

	// Dial resolves a job identifier's server into a connection handle.
	// Grounded on qdel.c's group_jobs_by_cluster + cnt2server pairing:
	// the command never talks to a fixed server, it resolves one per
	// job batch.
	Dial func(server string) (*fabric.Handle, error)
}

func (c *Command) Help() string {
	return "Usage: qdel [-W force|suppress_email=N] [-x] job_identifier...\n\n" +
		"Deletes one or more batch jobs."
}

func (c *Command) Synopsis() string {
	return "Delete batch jobs"
}

func (c *Command) Run(args []string) int {
	var force bool
	var deleteHistory bool
	var wArg string

	flags := flag.NewFlagSet("qdel", flag.ContinueOnError)
	flags.Usage = func() { c.UI.Error(c.Help()) }
	flags.StringVar(&wArg, "W", "", "force, or suppress_email=N")
	flags.BoolVar(&deleteHistory, "x", false, "delete job history")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	switch {
	case wArg == "":
	case wArg == "force":
		force = true
	case strings.HasPrefix(wArg, "suppress_email="):
		if _, err := strconv.Atoi(strings.TrimPrefix(wArg, "suppress_email=")); err != nil {
			c.UI.Error(c.Help())
			return 2
		}
	default:
		c.UI.Error(c.Help())
		return 2
	}

	jobIDs := flags.Args()
	if len(jobIDs) == 0 {
		c.UI.Error("qdel: at least one job_identifier is required")
		return 2
	}

	byServer := groupByServer(jobIDs)

	anyFailed := false
	for server, ids := range byServer {
		handle, err := c.Dial(server)
		if err != nil {
			c.UI.Error(fmt.Sprintf("qdel: couldn't connect to cluster: %s: %v", server, err))
			anyFailed = true
			continue
		}
		for _, id := range ids {
			if err := deleteOne(handle, id, force, deleteHistory); err != nil {
				c.UI.Error(fmt.Sprintf("qdel: %s: %v", id, err))
				anyFailed = true
			}
		}
		_ = handle.Disconnect()
	}

	if anyFailed {
		return 1
	}
	return 0
}

// groupByServer partitions job identifiers of the form "123.server" by
// their server suffix, matching qdel.c's group_jobs_by_cluster.
func groupByServer(jobIDs []string) map[string][]string {
	out := make(map[string][]string)
	for _, id := range jobIDs {
		server := ""
		if idx := strings.LastIndex(id, "@"); idx >= 0 {
			server = id[idx+1:]
		} else if idx := strings.Index(id, "."); idx >= 0 {
			server = id[idx+1:]
		}
		out[server] = append(out[server], id)
	}
	return out
}

// deleteOne opens a connection for jobID through handle. It does not
// encode or send a DeleteJob request, and force and deleteHistory are not
// used: a nil return means only that a server was reachable.
func deleteOne(handle *fabric.Handle, jobID string, force, deleteHistory bool) error {
	if _, err := handle.Connect(); err != nil {
		return fmt.Errorf("%s: %w", jobID, err)
	}
	return nil
}
