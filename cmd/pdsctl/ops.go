package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/grainlyyy/pds-api/internal/application/identity"
	"github.com/grainlyyy/pds-api/internal/application/otp"
	"github.com/grainlyyy/pds-api/internal/application/signup"
	"github.com/grainlyyy/pds-api/internal/config"
	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/grainlyyy/pds-api/internal/infrastructure/chain"
	"github.com/grainlyyy/pds-api/internal/infrastructure/dynamo"
	s3infra "github.com/grainlyyy/pds-api/internal/infrastructure/s3"
	"github.com/spf13/cobra"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newChainClient(ctx context.Context, cfg *config.Config) (*chain.Client, error) {
	var source chain.DocumentSource = chain.FileSource{Path: cfg.ABIPath}
	if bucket, key, ok := s3infra.ParseURI(cfg.ABIPath); ok {
		s3Client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		source = s3infra.NewStore(s3Client, bucket).Document(key)
	}
	return chain.NewClient(ctx, chain.Config{
		RPCURL:          cfg.RPCURL,
		ContractAddress: cfg.ContractAddress,
		AdminPrivateKey: cfg.AdminPrivateKey,
		ChainID:         cfg.ChainID,
		TxTimeout:       cfg.TxTimeout,
		ExplorerTxURL:   cfg.ExplorerTxURL,
	}, chain.NewABILoader(source, cfg.ABICacheTTL))
}

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Look up registered users",
}

var identityResolveCmd = &cobra.Command{
	Use:   "resolve [role] [key]",
	Short: "Resolve a wallet or aadhaar number the way the login endpoints do",
	Long:  `role is one of shopkeeper, delivery-agent or consumer. The chain is consulted first and approved signups are the fallback.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := domain.ParseRole(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		db, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		chainClient, err := newChainClient(ctx, cfg)
		if err != nil {
			return err
		}
		defer chainClient.Close()

		svc := identity.NewService(identity.ServiceDeps{
			Chain:       chainClient,
			Shopkeepers: dynamo.NewShopkeeperSignupRepo(db, cfg.DynamoTables.ShopkeeperSignups),
			Delivery:    dynamo.NewDeliverySignupRepo(db, cfg.DynamoTables.DeliverySignups),
			Consumers:   dynamo.NewConsumerSignupRepo(db, cfg.DynamoTables.ConsumerSignups),
			DefaultPIN:  cfg.DefaultConsumerPIN,
		})
		id, err := svc.Resolve(ctx, role, args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), id)
	},
}

func newOTPService(ctx context.Context) (otp.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return otp.NewService(otp.ServiceDeps{Store: dynamo.NewOTPRepo(db, cfg.DynamoTables.OTPs)}), nil
}

var otpCmd = &cobra.Command{
	Use:   "otp",
	Short: "Inspect and prune delivery OTPs",
}

var otpStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print OTP counts and the most recent codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newOTPService(cmd.Context())
		if err != nil {
			return err
		}
		stats, err := svc.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

var otpCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired OTPs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newOTPService(cmd.Context())
		if err != nil {
			return err
		}
		n, err := svc.Cleanup(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired OTPs\n", n)
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Manage signup queues",
}

var signupReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Approve pending requests whose wallet is already registered on chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		db, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		chainClient, err := newChainClient(ctx, cfg)
		if err != nil {
			return err
		}
		defer chainClient.Close()

		svc := signup.NewService(signup.ServiceDeps{
			Consumers:   dynamo.NewConsumerSignupRepo(db, cfg.DynamoTables.ConsumerSignups),
			Delivery:    dynamo.NewDeliverySignupRepo(db, cfg.DynamoTables.DeliverySignups),
			Shopkeepers: dynamo.NewShopkeeperSignupRepo(db, cfg.DynamoTables.ShopkeeperSignups),
			Chain:       chainClient,
		})
		report, err := svc.Reconcile(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Inspect contract transactions",
}

var txReceiptCmd = &cobra.Command{
	Use:   "receipt [hash]",
	Short: "Print the receipt of a mined transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		chainClient, err := newChainClient(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer chainClient.Close()

		receipt, err := chainClient.Receipt(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", chain.UserMessage(err), err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "status:   %d\n", receipt.Status)
		fmt.Fprintf(out, "block:    %s\n", receipt.BlockNumber)
		fmt.Fprintf(out, "gas used: %d\n", receipt.GasUsed)
		fmt.Fprintf(out, "explorer: %s\n", chainClient.ExplorerURL(args[0]))
		return nil
	},
}

func init() {
	identityCmd.AddCommand(identityResolveCmd)
	otpCmd.AddCommand(otpStatsCmd, otpCleanupCmd)
	signupCmd.AddCommand(signupReconcileCmd)
	txCmd.AddCommand(txReceiptCmd)
	rootCmd.AddCommand(identityCmd, otpCmd, signupCmd, txCmd)
}
