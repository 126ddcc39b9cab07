package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/anaplan-sdk/anaplan-go/pkg/anaplan"
	"github.com/anaplan-sdk/anaplan-go/pkg/filter"
)

// userFilterFlags maps each --filter-* flag to the SCIM field it matches.
var userFilterFlags = []struct {
	flag  string
	field string
	usage string
}{
	{"filter-user-name", filter.UserName, "match userName exactly"},
	{"filter-family-name", filter.FamilyName, "match family name exactly"},
	{"filter-given-name", filter.GivenName, "match given name exactly"},
	{"filter-external-id", filter.ExternalID, "match externalId exactly"},
}

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users through the SCIM API",
		Long: `List users through the SCIM API.

Filters combine with AND. --inactive lists only deactivated users and
--active only active ones.`,
		Args: cobra.NoArgs,
		RunE: runUsers,
	}

	for _, f := range userFilterFlags {
		cmd.Flags().String(f.flag, "", f.usage)
	}

	cmd.Flags().Bool("active", false, "only active users")
	cmd.Flags().Bool("inactive", false, "only deactivated users")
	cmd.MarkFlagsMutuallyExclusive("active", "inactive")

	return cmd
}

// buildUserFilter combines the set --filter-* flags into one expression.
// The zero Expr means no filter.
func buildUserFilter(cmd *cobra.Command) filter.Expr {
	var terms []filter.Expr

	for _, f := range userFilterFlags {
		if v, _ := cmd.Flags().GetString(f.flag); v != "" {
			terms = append(terms, filter.Field(f.field).Eq(v))
		}
	}

	if active, _ := cmd.Flags().GetBool("active"); active {
		terms = append(terms, filter.Field(filter.Active).Eq(true))
	}

	if inactive, _ := cmd.Flags().GetBool("inactive"); inactive {
		terms = append(terms, filter.Field(filter.Active).Eq(false))
	}

	if len(terms) == 0 {
		return filter.Expr{}
	}

	return filter.And(terms...)
}

func runUsers(cmd *cobra.Command, _ []string) error {
	f := buildUserFilter(cmd)

	return withClient(cmd, func(ctx context.Context, cc *CLIContext, c *anaplan.Client) error {
		users, err := c.ListUsers(ctx, f)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(users))
		for _, u := range users {
			rows = append(rows, []string{
				u.ID, u.UserName, u.Name.GivenName + " " + u.Name.FamilyName, strconv.FormatBool(u.Active),
			})
		}

		return cc.printResult(users, []string{"ID", "USER NAME", "NAME", "ACTIVE"}, rows)
	})
}
