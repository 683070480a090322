// Package probe is a small scripted client for exercising a running
// server by hand: it authenticates, declares resources, queries the
// disk inventory and logs out, printing every exchange.
package probe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"strings"
)

// Options configures one probe run.
type Options struct {
	Addr      string
	Secret    string
	MachineID string // random vm<N> id when empty
	SkipAuth  bool   // exercise the not-authenticated failure paths
	Out       io.Writer
}

// Run connects to the server and plays the scripted command sequence,
// printing each command and its response line.
func Run(ctx context.Context, opts Options) error {
	id := opts.MachineID
	if id == "" {
		id = fmt.Sprintf("vm%d", rand.Intn(50)+1)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", opts.Addr, err)
	}
	defer conn.Close()

	commands := []string{
		fmt.Sprintf("ADD_VM %s 2048 2 disk1_%s:100 disk2:200", id, id),
		fmt.Sprintf("UPDATE_VM 4096 4 disk1_%s:150 disk3:300", id),
		"LIST_DISKS",
		"LOGOUT",
	}
	if !opts.SkipAuth {
		commands = append([]string{fmt.Sprintf("AUTH %s %s", id, opts.Secret)}, commands...)
	}

	r := bufio.NewReader(conn)
	for _, cmd := range commands {
		fmt.Fprintf(opts.Out, "send: %s\n", cmd)
		if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
			return fmt.Errorf("failed to send command: %w", err)
		}

		resp, err := r.ReadString('\n')
		if err != nil {
			return fmt.Errorf("no response from server: %w", err)
		}
		fmt.Fprintf(opts.Out, "recv: %s\n", strings.TrimSpace(resp))
	}

	return nil
}
