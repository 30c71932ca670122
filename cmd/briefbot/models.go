package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Show which models each provider family resolves to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			creds := a.cfg.Credentials
			sel, err := a.models.GetModels(cmd.Context(),
				creds.OpenAIKey, creds.XAIKey,
				creds.OpenAIModelPolicy, creds.OpenAIModelPin,
				creds.XAIModelPolicy, creds.XAIModelPin,
				nil, nil)
			if err != nil {
				return err
			}
			fmt.Printf("openai: %s (policy %s)\n", orNone(sel.OpenAI), creds.OpenAIModelPolicy)
			fmt.Printf("xai:    %s (policy %s)\n", orNone(sel.XAI), creds.XAIModelPolicy)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "discover",
		Short: "List available grok models from the xAI API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			if a.cfg.Credentials.XAIKey == "" {
				return fmt.Errorf("XAI_API_KEY is not set")
			}
			ids, err := a.models.DiscoverXAIModels(cmd.Context(), a.cfg.Credentials.XAIKey)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	})
	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
