package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ensigniasec/cleaner-client/internal/api"
	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
)

//nolint:gochecknoglobals // flag bindings.
var (
	chatContext     string
	chatMaxTokens   int
	chatTemperature float64
)

//nolint:gochecknoinits // Cobra flag wiring.
func init() {
	chatCmd.Flags().StringVar(&chatContext, "context", "", "Extra context sent with the prompt")
	chatCmd.Flags().IntVar(&chatMaxTokens, "max-tokens", api.DefaultChatMaxTokens, "Maximum tokens in the answer")
	chatCmd.Flags().Float64Var(&chatTemperature, "temperature", api.DefaultChatTemperature, "Sampling temperature (0-2)")
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var chatCmd = &cobra.Command{
	Use:   "chat PROMPT...",
	Short: "Ask the assistant a question",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		req := apigen.ChatRequest{
			Prompt:      strings.Join(args, " "),
			MaxTokens:   chatMaxTokens,
			Temperature: chatTemperature,
		}
		if chatContext != "" {
			req.Context = &chatContext
		}
		resp, err := a.client.Chat(cmd.Context(), req)
		if err != nil {
			fail(err)
		}
		if jsonOutput {
			printJSON(resp)
			return
		}
		fmt.Fprintln(os.Stdout, resp.Response)
		logrus.Debugf("answered by %s in %.0f ms (%d tokens)", resp.ModelUsed, resp.ResponseTimeMS, resp.TokensUsed)
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the assistant models known to the backend",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		list, err := a.client.Models(cmd.Context())
		if err != nil {
			fail(err)
		}
		if jsonOutput {
			printJSON(list)
			return
		}
		t := newTable("NAME", "PROVIDER", "SIZE", "AVAILABLE", "LOADED")
		for _, m := range list.Models {
			t.Row(m.Name, m.Provider, fmt.Sprintf("%.1f GB", m.SizeGB), yesNo(m.IsAvailable), yesNo(m.IsLoaded))
		}
		fmt.Fprintln(os.Stdout, t.Render())
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
