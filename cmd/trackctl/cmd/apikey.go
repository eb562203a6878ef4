package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/volcanion-systems/volcanion-tracking/internal/apikey"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "API key utilities",
	Long:  "Generate, hash, and verify partner API keys offline",
}

var apikeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API key and its storable hash",
	Long: `Generate a random API key and print both the plaintext key and the
salted hash. Store only the hash; the plaintext cannot be recovered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := apikey.Generate()
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		hash, err := apikey.Hash(key)
		if err != nil {
			return fmt.Errorf("hash key: %w", err)
		}

		fmt.Printf("API Key: %s\n", key)
		fmt.Printf("Hash:    %s\n", hash)
		return nil
	},
}

var apikeyHashCmd = &cobra.Command{
	Use:   "hash <key>",
	Short: "Hash an existing API key for storage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := apikey.Hash(args[0])
		if err != nil {
			return fmt.Errorf("hash key: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}

var apikeyVerifyCmd = &cobra.Command{
	Use:   "verify <key> <hash>",
	Short: "Check a plaintext key against a stored hash",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !apikey.Validate(args[0], args[1]) {
			return fmt.Errorf("key does not match hash")
		}
		fmt.Println("OK")
		return nil
	},
}

func init() {
	apikeyCmd.AddCommand(apikeyGenerateCmd)
	apikeyCmd.AddCommand(apikeyHashCmd)
	apikeyCmd.AddCommand(apikeyVerifyCmd)
	rootCmd.AddCommand(apikeyCmd)
}
