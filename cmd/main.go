/*
Copyright 2024 Sokomart Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sokomart/ledger"
	"github.com/sokomart/ledger/config"
	"github.com/sokomart/ledger/database"
	"github.com/sokomart/ledger/internal/notification"
)

// CLI wraps the root cobra command.
type CLI struct {
	cmd *cobra.Command
}

// ledgerInstance holds the service instance and its configuration for the
// lifetime of a command.
type ledgerInstance struct {
	ledger *ledger.Ledger
	cnf    *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and initializes the service before any
// subcommand executes.
func preRun(app *ledgerInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("ledger.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newLedger, err := setupLedger(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.ledger = newLedger
		app.cnf = cnf

		return nil
	}
}

func setupLedger(cfg *config.Configuration) (*ledger.Ledger, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newLedger, err := ledger.NewLedger(db)
	if err != nil {
		return nil, fmt.Errorf("error creating ledger: %v", err)
	}
	return newLedger, nil
}

// NewCLI builds the command tree: server, workers and migrations.
func NewCLI() *CLI {
	var configFile string
	l := &ledgerInstance{}

	var rootCmd = &cobra.Command{
		Use:   "ledger",
		Short: "Seller earnings and payout ledger",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./ledger.json", "Configuration file for the ledger")
	rootCmd.PersistentPreRunE = preRun(l)

	rootCmd.AddCommand(serverCommands(l))
	rootCmd.AddCommand(workerCommands(l))
	rootCmd.AddCommand(migrateCommands(l))

	return &CLI{cmd: rootCmd}
}

func (c CLI) executeCLI() {
	if err := c.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
