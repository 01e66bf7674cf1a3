package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"CaseVault/pkg/util"
	"CaseVault/pkg/util/myjwt"
)

var (
	tokenUser string
	tokenJSON bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the HTTP API",
	Long: `token signs a JWT with the configured jwtConfig key. Pass the result as
"Authorization: Bearer <token>" when calling the HTTP surface.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "operator", "username claim embedded in the token")
	tokenCmd.Flags().BoolVar(&tokenJSON, "json", false, "output the token as JSON")
	rootCmd.AddCommand(tokenCmd)
}

// runToken needs only the config file, not the backing stores.
func runToken(cmd *cobra.Command, _ []string) error {
	tok, err := myjwt.GenerateToken(util.GenerateUUID(), tokenUser)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}
	if tokenJSON {
		return printJSON(cmd, map[string]string{"token": tok})
	}
	cmd.Println(tok)
	return nil
}
