package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/CivicGraph/demo-server/application/commands"
	"github.com/CivicGraph/demo-server/application/commands/bus"
	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/application/queries"
	querybus "github.com/CivicGraph/demo-server/application/queries/bus"
	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
)

type app struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
}

// appFactory builds the buses for one invocation and returns a cleanup.
type appFactory func(cmd *cobra.Command) (*app, func(), error)

func newRootCmd(factory appFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "lineagectl",
		Short:         "Inspect and edit lineage sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("session", "s", "", "session id (x-session-id)")
	root.PersistentFlags().String("config", "", "YAML configuration overlay")
	_ = root.MarkPersistentFlagRequired("session")

	run := func(fn func(cmd *cobra.Command, a *app, session valueobjects.SessionID, args []string) (interface{}, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("session")
			session, err := valueobjects.NewSessionID(raw)
			if err != nil {
				return err
			}
			a, cleanup, err := factory(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := fn(cmd, a, session, args)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		}
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Seed the session from the canonical graph",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, a *app, session valueobjects.SessionID, args []string) (interface{}, error) {
			return true, a.commandBus.Send(cmd.Context(), commands.InitSessionCommand{Session: session})
		}),
	}

	showCmd := &cobra.Command{
		Use:   "show [node-id...]",
		Short: "Print the session graph, or only the named nodes",
		RunE: run(func(cmd *cobra.Command, a *app, session valueobjects.SessionID, args []string) (interface{}, error) {
			return a.queryBus.Ask(cmd.Context(), queries.ShowQuery{Session: session, NodeIDs: args, Options: ports.ShowOptions{}})
		}),
	}

	listCmd := &cobra.Command{
		Use:   "list <canonical-id>",
		Short: "List the canonical children of a canonical node",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, session valueobjects.SessionID, args []string) (interface{}, error) {
			return a.queryBus.Ask(cmd.Context(), queries.ListChildrenQuery{Session: session, RawID: args[0]})
		}),
	}

	addCmd := &cobra.Command{
		Use:   "add <parent-id> <children.json|->",
		Short: "Attach the nodes in a JSON array below a parent",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(cmd *cobra.Command, a *app, session valueobjects.SessionID, args []string) (interface{}, error) {
			var children []entities.Document
			if err := readJSON(cmd, args[1], &children); err != nil {
				return nil, err
			}
			return true, a.commandBus.Send(cmd.Context(), commands.AddChildrenCommand{
				Session:  session,
				ParentID: args[0],
				Children: children,
			})
		}),
	}

	editCmd := &cobra.Command{
		Use:   "edit <node.json|->",
		Short: "Replace a node with the JSON document given",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, session valueobjects.SessionID, args []string) (interface{}, error) {
			var node entities.Document
			if err := readJSON(cmd, args[0], &node); err != nil {
				return nil, err
			}
			return true, a.commandBus.Send(cmd.Context(), commands.EditNodeCommand{Session: session, Node: node})
		}),
	}

	removeCmd := &cobra.Command{
		Use:   "remove <node-id>",
		Short: "Delete a node and everything below it",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, session valueobjects.SessionID, args []string) (interface{}, error) {
			return true, a.commandBus.Send(cmd.Context(), commands.RemoveNodeCommand{Session: session, NodeID: args[0]})
		}),
	}

	versionsCmd := &cobra.Command{
		Use:   "versions <node-id> <epoch-seconds>...",
		Short: "Print a node as it was at each timestamp",
		Args:  cobra.MinimumNArgs(2),
		RunE: run(func(cmd *cobra.Command, a *app, session valueobjects.SessionID, args []string) (interface{}, error) {
			timestamps := make([]float64, 0, len(args)-1)
			for _, raw := range args[1:] {
				ts, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid timestamp %q: %w", raw, err)
				}
				timestamps = append(timestamps, ts)
			}
			return a.queryBus.Ask(cmd.Context(), queries.VersionsQuery{Session: session, NodeID: args[0], Timestamps: timestamps})
		}),
	}

	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Print the session history as a timeline",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, a *app, session valueobjects.SessionID, args []string) (interface{}, error) {
			return a.queryBus.Ask(cmd.Context(), queries.LogQuery{Session: session})
		}),
	}

	root.AddCommand(initCmd, showCmd, listCmd, addCmd, editCmd, removeCmd, versionsCmd, logCmd)
	return root
}

// readJSON decodes a file, or stdin when path is "-".
func readJSON(cmd *cobra.Command, path string, v interface{}) error {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
