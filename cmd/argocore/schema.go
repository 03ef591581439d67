package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-trading/pkg/marketdata"
	"github.com/rxtech-lab/argo-trading/pkg/marketdata/provider"
)

// schemaCommand exposes the JSON Schema and keychain metadata for every
// registered provider's download and stream configuration, so an
// operator (or a UI generating a config form) never has to read Go
// struct tags directly.
func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Inspect provider config schemas",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List supported market data providers",
				Action: schemaListAction,
			},
			{
				Name:      "download",
				Usage:     "Print a provider's download config JSON schema and keychain fields",
				ArgsUsage: "<provider>",
				Action:    schemaDownloadAction,
			},
			{
				Name:      "stream",
				Usage:     "Print a provider's stream config JSON schema and keychain fields",
				ArgsUsage: "<provider>",
				Action:    schemaStreamAction,
			},
		},
	}
}

func schemaListAction(ctx context.Context, cmd *cli.Command) error {
	for _, name := range marketdata.GetSupportedProviders() {
		info, err := marketdata.GetProviderInfo(name)
		if err != nil {
			return err
		}

		fmt.Printf("%s\t%s\t%s\n", info.Name, info.DisplayName, info.Description)
	}

	return nil
}

func schemaDownloadAction(ctx context.Context, cmd *cli.Command) error {
	providerName := cmd.Args().First()
	if providerName == "" {
		return fmt.Errorf("usage: argocore schema download <provider>")
	}

	schema, err := marketdata.GetDownloadConfigSchema(providerName)
	if err != nil {
		return err
	}

	fields, err := marketdata.GetDownloadKeychainFields(providerName)
	if err != nil {
		return err
	}

	fmt.Println(schema)

	if len(fields) > 0 {
		fmt.Printf("keychain fields: %s\n", strings.Join(fields, ", "))
	}

	return nil
}

func schemaStreamAction(ctx context.Context, cmd *cli.Command) error {
	providerName := cmd.Args().First()
	if providerName == "" {
		return fmt.Errorf("usage: argocore schema stream <provider>")
	}

	schema, err := provider.GetStreamConfigSchema(providerName)
	if err != nil {
		return err
	}

	fields, err := provider.GetStreamKeychainFields(providerName)
	if err != nil {
		return err
	}

	fmt.Println(schema)

	if len(fields) > 0 {
		fmt.Printf("keychain fields: %s\n", strings.Join(fields, ", "))
	}

	return nil
}
