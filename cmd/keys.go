package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/lambda"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/output"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/ssh"

	"github.com/spf13/cobra"
)

var (
	keysIDs   []string
	keysNames []string

	keysAddPublicKey     string
	keysAddPublicKeyFile string
	keysAddGenerate      bool
	keysAddPrivateKeyOut string
)

// keysCmd represents the keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage SSH keys",
	Long:  `Manage the SSH keys registered with your account. Without a subcommand the keys are listed.`,
	Args:  cobra.NoArgs,
	RunE:  listKeys,
}

var keysLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List SSH keys",
	Args:  cobra.NoArgs,
	RunE:  listKeys,
}

var keysAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register an SSH key",
	Long: `Register an SSH key under <name>. Pass an existing public key, let lai
generate an ed25519 pair with --generate, or pass neither to have the
provider generate one. Private keys are written with mode 0600.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		printer, err := newPrinter(cmd, output.FormatTable)
		if err != nil {
			return err
		}

		var publicKey string
		var generated *ssh.KeyPair
		switch {
		case keysAddPublicKey != "":
			publicKey, err = ssh.ValidatePublicKey(keysAddPublicKey)
		case keysAddPublicKeyFile != "":
			publicKey, err = ssh.ReadPublicKey(keysAddPublicKeyFile)
		case keysAddGenerate:
			generated, err = ssh.GenerateKeyPair(name)
			if generated != nil {
				publicKey = generated.PublicKey
			}
		}
		if err != nil {
			return err
		}

		// without a public key some private key ends up on disk
		privateKeyPath := ""
		if publicKey == "" || generated != nil {
			privateKeyPath, err = privateKeyDestination(name)
			if err != nil {
				return err
			}
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		res, err := client.AddSSHKey(cmd.Context(), lambda.AddSSHKeyRequest{Name: name, PublicKey: publicKey})
		if err != nil {
			return fmt.Errorf("failed to add SSH key: %w", err)
		}
		if err := res.Err(); err != nil {
			return err
		}

		key := res.Data
		var privateKey []byte
		switch {
		case generated != nil:
			privateKey = generated.PrivateKey
		case key.PrivateKey != nil:
			privateKey = []byte(*key.PrivateKey)
		}
		key.PrivateKey = nil

		if privateKeyPath != "" && len(privateKey) > 0 {
			if err := ssh.SavePrivateKey(privateKeyPath, privateKey); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Private key written to %s\n", privateKeyPath)
		}

		if printer.Format() != output.FormatTable {
			return printer.Structured(key)
		}
		printer.Table(keysTable([]lambda.SSHKey{key}))
		return nil
	},
}

var keysRmCmd = &cobra.Command{
	Use:     "rm <id>...",
	Aliases: []string{"delete"},
	Short:   "Delete SSH keys",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		for _, id := range args {
			res, err := client.DeleteSSHKey(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to delete SSH key %s: %w", id, err)
			}
			if err := res.Err(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed key %s\n", id)
		}
		return nil
	},
}

func listKeys(cmd *cobra.Command, args []string) error {
	printer, err := newPrinter(cmd, output.FormatTable)
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}

	res, err := client.ListSSHKeys(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list SSH keys: %w", err)
	}
	if err := res.Err(); err != nil {
		return err
	}

	keys := filterKeys(res.Data, keysIDs, keysNames)
	return printer.List(keys, func() output.Table { return keysTable(keys) }, "No keys found.")
}

// privateKeyDestination picks where a private key for name is written and
// refuses paths that already exist, before anything is uploaded.
func privateKeyDestination(name string) (string, error) {
	path := keysAddPrivateKeyOut
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate home directory, pass --private-key-out: %w", err)
		}
		path = filepath.Join(home, ".ssh", name+".pem")
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("private key destination %s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to check %s: %w", path, err)
	}
	return path, nil
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysLsCmd, keysAddCmd, keysRmCmd)

	for _, c := range []*cobra.Command{keysCmd, keysLsCmd} {
		c.Flags().StringArrayVar(&keysIDs, "id", nil, "Only keys with this ID (repeatable)")
		c.Flags().StringArrayVar(&keysNames, "name", nil, "Only keys with this name (repeatable)")
	}

	keysAddCmd.Flags().StringVar(&keysAddPublicKey, "public-key", "", "Public key in authorized_keys format")
	keysAddCmd.Flags().StringVar(&keysAddPublicKeyFile, "public-key-file", "", "File holding the public key")
	keysAddCmd.Flags().BoolVar(&keysAddGenerate, "generate", false, "Generate an ed25519 key pair locally")
	keysAddCmd.Flags().StringVar(&keysAddPrivateKeyOut, "private-key-out", "", "Where to write the private key (default ~/.ssh/<name>.pem)")
	keysAddCmd.MarkFlagsMutuallyExclusive("public-key", "public-key-file", "generate")
}
