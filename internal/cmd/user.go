package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/output"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user profiles and credits",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create a profile with the starting credits of its plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		planFlag, _ := cmd.Flags().GetString("plan")

		email := strings.TrimSpace(args[0])
		if !strings.Contains(email, "@") {
			return fmt.Errorf("invalid email %q", args[0])
		}
		plan, err := core.ParsePlan(planFlag)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		profile := &core.UserProfile{
			ID:               uuid.NewString(),
			Email:            email,
			Plan:             plan,
			CreditsRemaining: cfg.Credits.Allotment(plan),
		}
		if err := st.CreateProfile(ctx, profile); err != nil {
			return err
		}
		return emit(cmd, func(f output.Formatter) (string, error) { return f.FormatProfile(profile) })
	},
}

var userShowCmd = &cobra.Command{
	Use:   "show <user>",
	Short: "Show a profile by id or email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		session, err := resolveSession(ctx, st, args[0])
		if err != nil {
			return err
		}
		return emit(cmd, func(f output.Formatter) (string, error) { return f.FormatProfile(session.Profile) })
	},
}

var userGrantCmd = &cobra.Command{
	Use:   "grant <user> <amount>",
	Short: "Add search credits to a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		amount, err := strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil || amount <= 0 {
			return fmt.Errorf("amount must be a positive integer, got %q", args[1])
		}
		planFlag, _ := cmd.Flags().GetString("plan")

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		session, err := resolveSession(ctx, st, args[0])
		if err != nil {
			return err
		}
		if strings.TrimSpace(planFlag) != "" {
			plan, err := core.ParsePlan(planFlag)
			if err != nil {
				return err
			}
			if err := st.SetPlan(ctx, session.User.ID, plan); err != nil {
				return err
			}
		}
		if _, err := st.GrantCredits(ctx, session.User.ID, amount); err != nil {
			return err
		}

		profile, err := st.GetProfile(ctx, session.User.ID)
		if err != nil {
			return err
		}
		return emit(cmd, func(f output.Formatter) (string, error) { return f.FormatProfile(profile) })
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd, userShowCmd, userGrantCmd)

	userCreateCmd.Flags().String("plan", "free", "Plan: free, premium_basic, premium_pro, enterprise")
	userGrantCmd.Flags().String("plan", "", "Also move the profile to this plan")
	for _, c := range []*cobra.Command{userCreateCmd, userShowCmd, userGrantCmd} {
		addOutputFlags(c)
	}
}
