// Package node provides the commands that manage enrolled nodes.
package node

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/orris-inc/gamepanel/internal/application/node/usecases"
	"github.com/orris-inc/gamepanel/internal/infrastructure/database"
	"github.com/orris-inc/gamepanel/internal/infrastructure/repository"
	"github.com/orris-inc/gamepanel/internal/interfaces/cli/bootstrap"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

var (
	env        string
	configPath string
	fqdn       string
	labels     map[string]string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage nodes",
		Long:  `Enroll, list and remove the nodes whose agents may connect to the panel.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	cmd.AddCommand(
		newCreateCommand(),
		newListCommand(),
		newDeleteCommand(),
	)

	return cmd
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Enroll a node and print its agent token",
		Args:  cobra.ExactArgs(1),
		RunE:  runCreate,
	}

	cmd.Flags().StringVar(&fqdn, "fqdn", "", "Fully qualified domain name of the node")
	cmd.Flags().StringToStringVarP(&labels, "label", "l", nil, "Labels as key=value pairs")

	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List enrolled nodes",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <node-id>",
		Short: "Remove a node; its agent can no longer connect",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}
}

func withRepository(fn func(ctx context.Context, db *gorm.DB, log logger.Interface) error) error {
	cfg, log, err := bootstrap.Init(env, configPath)
	if err != nil {
		return err
	}

	db, err := bootstrap.OpenDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return fn(ctx, db, log)
}

func runCreate(cmd *cobra.Command, args []string) error {
	return withRepository(func(ctx context.Context, db *gorm.DB, log logger.Interface) error {
		uc := usecases.NewCreateNodeUseCase(repository.NewNodeRepository(db, log), log)
		result, err := uc.Execute(ctx, usecases.CreateNodeCommand{
			Name:   args[0],
			FQDN:   fqdn,
			Labels: labels,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Node created\n")
		fmt.Fprintf(out, "  ID:    %s\n", result.ID)
		fmt.Fprintf(out, "  Name:  %s\n", result.Name)
		fmt.Fprintf(out, "  Token: %s\n", result.Token)
		fmt.Fprintf(out, "\nThe token is shown only once. Configure the agent with it now.\n")
		return nil
	})
}

func runList(cmd *cobra.Command, args []string) error {
	return withRepository(func(ctx context.Context, db *gorm.DB, log logger.Interface) error {
		uc := usecases.NewListNodesUseCase(repository.NewNodeRepository(db, log), log)
		nodes, err := uc.Execute(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tFQDN\tLAST SEEN")
		for _, n := range nodes {
			lastSeen := "never"
			if n.LastSeenAt != nil {
				lastSeen = n.LastSeenAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.ID, n.Name, n.FQDN, lastSeen)
		}
		return w.Flush()
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	return withRepository(func(ctx context.Context, db *gorm.DB, log logger.Interface) error {
		uc := usecases.NewDeleteNodeUseCase(repository.NewNodeRepository(db, log), log)
		if err := uc.Execute(ctx, usecases.DeleteNodeCommand{NodeSID: args[0]}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Node %s deleted\n", args[0])
		return nil
	})
}
