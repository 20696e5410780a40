package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	bucketFlag      string
	keyFlag         string
	encryptFlag     bool
	kmsKeyFlag      string
	noBucketKeyFlag bool
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a file to a registered bucket",
	Long:  `Base64-encodes the file and stores it under --key (default: the file name). Prints the object URL.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		key := keyFlag
		if key == "" {
			key = filepath.Base(args[0])
		}

		a, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.objects.Upload(cmd.Context(), bucketFlag, key, base64.StdEncoding.EncodeToString(data), encryptFlag)
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <key>...",
	Short: "Delete objects from a registered bucket",
	Long:  `Deletes all keys in one batch request and prints the per-key outcome.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.objects.Delete(cmd.Context(), bucketFlag, args)
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

// presignCmd represents the presign command
var presignCmd = &cobra.Command{
	Use:   "presign <key>",
	Short: "Print a presigned GET URL for an object",
	Long: `Signs a GET link valid for 48000 hours. The link signs Content-Type image/jpeg and,
when a KMS key is given or registered for the bucket, the SSE-KMS headers.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		presigned, err := a.objects.Presign(cmd.Context(), bucketFlag, args[0], kmsKeyFlag, !noBucketKeyFlag)
		if err != nil {
			return err
		}
		return printJSON(cmd, presigned)
	},
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	for _, c := range []*cobra.Command{uploadCmd, deleteCmd, presignCmd} {
		c.Flags().StringVarP(&bucketFlag, "bucket", "b", "", "registered bucket name")
		_ = c.MarkFlagRequired("bucket")
		RootCmd.AddCommand(c)
	}

	uploadCmd.Flags().StringVarP(&keyFlag, "key", "k", "", "object key (default: file name)")
	uploadCmd.Flags().BoolVar(&encryptFlag, "encrypt", false, "encrypt with the bucket's KMS key")

	presignCmd.Flags().StringVar(&kmsKeyFlag, "kms-key", "", "KMS key id to sign the SSE headers with")
	presignCmd.Flags().BoolVar(&noBucketKeyFlag, "no-bucket-key", false, "do not fall back to the bucket's registered KMS key")
}
