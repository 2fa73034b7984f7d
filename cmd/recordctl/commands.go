package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/burugo/record"
)

func stringArgs(args []string) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func newQueryCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "query SQL [ARGS...]",
		Short: "Run a read statement and print the rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			rows, err := app.DB.FetchAll(cmd.Context(), args[0], stringArgs(args[1:])...)
			if err != nil {
				return err
			}
			return renderRows(cmd.OutOrStdout(), rows, format)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format: table, json, csv")
	return cmd
}

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec SQL [ARGS...]",
		Short: "Run a write statement in its own transaction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			res, err := app.DB.Execute(cmd.Context(), args[0], stringArgs(args[1:])...)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "rows affected: %d, last insert id: %d\n", res.RowsAffected, res.LastInsertID)
			return nil
		},
	}
}

func newCreateTableCmd() *cobra.Command {
	var defs []string
	cmd := &cobra.Command{
		Use:   "create-table NAME --column name:TYPE[:opts]...",
		Short: "Create a table if it does not exist",
		Long: `Create a table if it does not exist.

Each --column is name:TYPE optionally followed by a colon and a comma
separated option list: pk, notnull, unique, index, default=LITERAL,
ref=TABLE.COLUMN. Example:

  recordctl create-table users --column id:INTEGER:pk \
    --column email:TEXT:notnull,unique --column name:TEXT`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			columns := make([]record.Column, 0, len(defs))
			for _, s := range defs {
				col, err := parseColumn(s)
				if err != nil {
					return err
				}
				columns = append(columns, col)
			}
			if err := app.DB.CreateTable(cmd.Context(), args[0], columns); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "table %s ready\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&defs, "column", "c", nil, "column definition name:TYPE[:opts] (repeatable)")
	return cmd
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Create a users table, save a user and query it back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if err := app.DB.CreateTable(ctx, "users", userColumns()); err != nil {
				return err
			}

			u := &User{Name: "Mohamed Hany", Email: "hany@deepcode.com"}
			existing, err := app.Users.First(ctx, "email = ?", u.Email)
			if err != nil {
				return err
			}
			if existing != nil {
				u = existing
			} else if err := app.Users.Save(ctx, u); err != nil {
				return err
			}
			app.Logger.Debug("demo user ready", zap.Int64("id", u.ID))

			users, err := app.Users.All(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "Total users: %d\n", len(users))

			found, err := app.Users.Find(ctx, u.ID)
			if err != nil {
				return err
			}
			if found != nil {
				b, err := app.Users.ToJSON(found)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "Found: %s\n", b)
			}

			query, params := app.Users.Query().Where("email LIKE ?", "%deepcode%").Select("name", "email").Build()
			results, err := app.DB.FetchAll(ctx, query, params...)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, "Search results:")
			return renderRows(out, results, "table")
		},
	}
}
