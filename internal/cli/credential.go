package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCredentialCmd создаёт группу команд для управления credentials.
// Все команды требуют --user-id: credentials строго привязаны к владельцу.
func NewCredentialCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage credentials",
	}

	cmd.AddCommand(
		newCredentialListCmd(clientFn, outputFn),
		newCredentialCreateCmd(clientFn, outputFn),
		newCredentialDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newCredentialListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List credentials (secrets are never shown)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			credentials, err := client.ListCredentials()
			if err != nil {
				return err
			}

			headers := []string{"ID", "TYPE", "NAME", "CREATED"}
			rows := make([][]string, len(credentials))
			for i, c := range credentials {
				rows[i] = []string{c.ID, c.Type, c.Name, c.CreatedAt}
			}

			out.Print(headers, rows, credentials)
			return nil
		},
	}
}

func newCredentialCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var credentialType string
	var name string
	var secret string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			credential, err := client.CreateCredential(CreateCredentialRequest{
				Type:   credentialType,
				Name:   name,
				Secret: secret,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Credential created: %s", credential.ID))
			out.Print(
				[]string{"ID", "TYPE", "NAME", "CREATED"},
				[][]string{{credential.ID, credential.Type, credential.Name, credential.CreatedAt}},
				credential,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&credentialType, "type", "", "Credential type (OPENAI, ANTHROPIC, GEMINI, DISCORD)")
	cmd.Flags().StringVar(&name, "name", "", "Human-readable name")
	cmd.Flags().StringVar(&secret, "secret", "", "Secret value (API key or webhook URL)")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("secret")

	return cmd
}

func newCredentialDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a credential and its secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteCredential(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Credential deleted: %s", args[0]))
			return nil
		},
	}
}
