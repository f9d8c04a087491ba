/*
Copyright 2024 Kobo Authors.

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

	"github.com/davidenwere/kobo"
	"github.com/davidenwere/kobo/config"
	"github.com/davidenwere/kobo/database"
	"github.com/davidenwere/kobo/internal/notification"
)

// Kobo represents the CLI application, encapsulating the root Cobra command.
type Kobo struct {
	cmd *cobra.Command
}

// koboInstance holds the engine instance and its configuration so the
// subcommands share one initialized engine.
type koboInstance struct {
	kobo *kobo.Kobo
	cnf  *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the engine before any
// subcommand runs.
func preRun(app *koboInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newKobo, err := setupKobo(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.kobo = newKobo
		app.cnf = cnf

		return nil
	}
}

// setupKobo connects the datasource and builds the engine on top of it.
func setupKobo(cfg *config.Configuration) (*kobo.Kobo, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newKobo, err := kobo.NewKobo(db)
	if err != nil {
		return nil, fmt.Errorf("error creating kobo: %v", err)
	}
	return newKobo, nil
}

// NewCLI creates the command-line interface for the Kobo application.
func NewCLI() *Kobo {
	var configFile string
	k := &koboInstance{}

	var rootCmd = &cobra.Command{
		Use:   "kobo",
		Short: "Open source banking backend",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./kobo.json", "Configuration file for kobo")
	rootCmd.PersistentPreRunE = preRun(k, &configFile)

	rootCmd.AddCommand(serverCommands(k))
	rootCmd.AddCommand(workerCommands(k))
	rootCmd.AddCommand(migrateCommands(k))

	return &Kobo{cmd: rootCmd}
}

func (w Kobo) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
