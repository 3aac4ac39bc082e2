package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
)

var (
	chatConversation string
	chatRole         string
	chatShowMemory   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant from the terminal",
	Long: `Reads one message per line from stdin and prints the reply.
Type "exit" or send EOF to quit.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatConversation, "conversation", "cli-1", "conversation id")
	chatCmd.Flags().StringVar(&chatRole, "role", string(contractx.RoleCustomer), "caller role (customer, agent, admin)")
	chatCmd.Flags().BoolVar(&chatShowMemory, "memory", false, "print slot memory after every reply")
}

func runChat(cmd *cobra.Command, _ []string) error {
	role, err := contractx.ParseRole(chatRole)
	if err != nil {
		return err
	}

	app, err := newApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer app.close()

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "exit" || text == "quit" {
			return nil
		}
		if text == "" {
			fmt.Fprint(out, "> ")
			continue
		}

		resp := app.orchestrator.Respond(cmd.Context(), contractx.TurnRequest{
			ConversationID: chatConversation,
			Role:           role,
			Text:           text,
		})
		fmt.Fprintln(out, resp.Text)
		if chatShowMemory {
			raw, _ := json.Marshal(resp.Memory)
			fmt.Fprintf(out, "memory: %s\n", raw)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
