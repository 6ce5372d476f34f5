package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tasktracker/task-api/internal/core/domain"
	"github.com/tasktracker/task-api/internal/core/ports"
)

var errUsage = errors.New("usage")

type command struct {
	name        string
	description string
	run         func(ctx context.Context, args []string) error
}

type rootCommand struct {
	groups   ports.GroupRepository
	out      io.Writer
	commands map[string]*command
}

func newRootCommand(groups ports.GroupRepository, out io.Writer) *rootCommand {
	r := &rootCommand{groups: groups, out: out, commands: make(map[string]*command)}
	for _, c := range []*command{
		{name: "ensure-groups", description: "Create the Admin and User groups if missing", run: r.ensureGroups},
		{name: "grant", description: "Add a user to a group (-username, -group)", run: r.membership(true)},
		{name: "revoke", description: "Remove a user from a group (-username, -group)", run: r.membership(false)},
		{name: "staff", description: "Set or clear the staff flag (-username, -on)", run: r.staff},
	} {
		r.commands[c.name] = c
	}
	return r
}

func (r *rootCommand) execute(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		r.usage()
		return nil
	}
	cmd, ok := r.commands[args[0]]
	if !ok {
		r.usage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return cmd.run(ctx, args[1:])
}

func (r *rootCommand) usage() {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(r.out, "Usage: manage <command> [flags]\n\nCommands:\n")
	for _, name := range names {
		fmt.Fprintf(r.out, "  %-14s %s\n", name, r.commands[name].description)
	}
}

func (r *rootCommand) ensureGroups(ctx context.Context, _ []string) error {
	created, err := r.groups.EnsureGroups(ctx, domain.GroupAdmin, domain.GroupUser)
	if err != nil {
		return err
	}
	if len(created) == 0 {
		fmt.Fprintln(r.out, "Groups already exist.")
		return nil
	}
	fmt.Fprintf(r.out, "Created groups: %s\n", strings.Join(created, ", "))
	return nil
}

func (r *rootCommand) membership(add bool) func(ctx context.Context, args []string) error {
	return func(ctx context.Context, args []string) error {
		name := "revoke"
		if add {
			name = "grant"
		}
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		fs.SetOutput(r.out)
		username := fs.String("username", "", "username to change")
		group := fs.String("group", "", "group name (Admin or User)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *username == "" || *group == "" {
			fs.Usage()
			return fmt.Errorf("%w: -username and -group are required", errUsage)
		}

		if add {
			if err := r.groups.AddMember(ctx, *username, *group); err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Added %s to %s.\n", *username, *group)
			return nil
		}
		if err := r.groups.RemoveMember(ctx, *username, *group); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Removed %s from %s.\n", *username, *group)
		return nil
	}
}

func (r *rootCommand) staff(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("staff", flag.ContinueOnError)
	fs.SetOutput(r.out)
	username := fs.String("username", "", "username to change")
	on := fs.Bool("on", false, "grant staff (omit or -on=false to clear)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		fs.Usage()
		return fmt.Errorf("%w: -username is required", errUsage)
	}

	if err := r.groups.SetStaff(ctx, *username, *on); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Staff flag for %s set to %t.\n", *username, *on)
	return nil
}
