package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github/itish2003/cricketbot/models"
	"github/itish2003/cricketbot/services"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Chat with the assistant in the terminal",
	Long:  `Build the index and start an interactive session. Type "exit" to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, newProgress("Loading docs"))
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Warnf("Warning: %v", err)
			}
		}()

		ragService, err := a.start(ctx)
		if err != nil {
			return err
		}
		return chatLoop(ctx, ragService, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

// chatLoop reads questions line by line until "exit" or end of input. All
// turns share one session.
func chatLoop(ctx context.Context, svc services.RAGService, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	sessionID := ""
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(text, "exit") {
			fmt.Fprintln(out, "Exiting chat...")
			return nil
		}
		if text == "" {
			continue
		}

		resp, err := svc.Chat(ctx, models.ChatRequest{Text: text, SessionID: sessionID})
		if err != nil {
			log.Errorf("CHAT ERROR: %v", err)
			fmt.Fprintln(out, "Assistant: Sorry, I could not answer that. Please try again.")
			continue
		}
		sessionID = resp.SessionID
		fmt.Fprintf(out, "Assistant: %s\n", resp.Response)
	}
}
