package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/danmuck/mgmtd/internal/mbean"
	"github.com/danmuck/mgmtd/internal/startup"
	"github.com/spf13/cobra"
)

func newLoadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Bring the management tree up on a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			root, err := client.Invoke(contextOr(cmd.Context()), startup.ServiceObjectName, startup.OpLoad, nil)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "loaded %v\n", root)
			return err
		},
	}
}

func newUnloadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unload",
		Short: "Tear the management tree down on a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			if _, err := client.Invoke(contextOr(cmd.Context()), startup.ServiceObjectName, startup.OpUnload, nil); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "unloaded")
			return err
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show bring-up status and readiness features",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			ctx := contextOr(cmd.Context())
			status, err := client.Invoke(ctx, startup.ServiceObjectName, "status", nil)
			if err != nil {
				return err
			}
			ready, err := client.Ready(ctx)
			if err != nil {
				return err
			}
			features, err := client.Features(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"ready":    ready,
				"status":   status,
				"features": features,
			})
		},
	}
}

func newMBeansCmd(opts *rootOptions) *cobra.Command {
	var domain string
	cmd := &cobra.Command{
		Use:   "mbeans",
		Short: "List registered management objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			infos, err := client.List(contextOr(cmd.Context()), domain)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPARENT\tATTRIBUTES\tOPERATIONS")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					info.Name,
					orDash(info.Parent.String()),
					orDash(strings.Join(info.Attributes, ",")),
					orDash(strings.Join(info.Operations, ",")),
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "only list this domain")
	return cmd
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME ATTRIBUTE",
		Short: "Read one attribute",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := mbean.ParseName(args[0])
			if err != nil {
				return err
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			value, err := client.GetAttribute(contextOr(cmd.Context()), name, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), value)
		},
	}
}

func newInvokeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "invoke NAME OPERATION [key=value...]",
		Short: "Run one operation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := mbean.ParseName(args[0])
			if err != nil {
				return err
			}
			opArgs, err := parseArgs(args[2:])
			if err != nil {
				return err
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			result, err := client.Invoke(contextOr(cmd.Context()), name, args[1], opArgs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func parseArgs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
