package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var connectorsCmd = &cobra.Command{
	Use:     "connectors",
	Aliases: []string{"connector"},
	Short:   "List the connectors configured on the service",
	RunE:    runConnectors,
}

func init() {
	rootCmd.AddCommand(connectorsCmd)
}

func runConnectors(cmd *cobra.Command, _ []string) error {
	if connectorService == nil {
		return fmt.Errorf("connector service %w", errNotConfigured)
	}

	connectors, err := connectorService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("list connectors: %w", err)
	}

	if len(connectors) == 0 {
		cmd.Println("No connectors configured.")
		return nil
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("ID", "TYPE", "NAME", "STATUS", "LAST SYNC")
	for _, c := range connectors {
		lastSync := "never"
		if c.LastSyncAt != nil {
			lastSync = c.LastSyncAt.Local().Format(time.DateTime)
		}
		status := c.SyncStatus
		if !c.IsActive {
			status += " (inactive)"
		}
		t.Row(c.ID, c.ConnectorType, c.Name, status, lastSync)
	}

	cmd.Println(t.Render())
	return nil
}
