package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/kvstore/codec"
	"github.com/unkn0wn-root/kvstore/internal/server"
)

// withStorage opens the store for one command and closes it afterwards.
func (c *cli) withStorage(ctx context.Context, fn func(server.Storage) error) error {
	st, be, err := openStorage(ctx, c.cfg.Store, c.logs.Logger, nil)
	if err != nil {
		return err
	}
	defer be.Close(context.Background())
	return fn(st)
}

func getCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value (or collection) stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStorage(cmd.Context(), func(st server.Storage) error {
				v, ok, err := st.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: not found", args[0])
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			})
		},
	}
}

func setCmd(c *cli) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "set KEY JSON",
		Short: "Store a JSON object under KEY (appends in append mode)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rec codec.Record
			if err := json.Unmarshal([]byte(args[1]), &rec); err != nil || rec == nil {
				return fmt.Errorf("value must be a JSON object")
			}
			return c.withStorage(cmd.Context(), func(st server.Storage) error {
				if cmd.Flags().Changed("ttl") {
					return st.SetWithExpiry(cmd.Context(), args[0], rec, ttl)
				}
				return st.Set(cmd.Context(), args[0], rec)
			})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "expire the key after this long (0 expires immediately)")
	return cmd
}

func delCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "del KEY",
		Short: "Delete KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStorage(cmd.Context(), func(st server.Storage) error {
				return st.Delete(cmd.Context(), args[0])
			})
		},
	}
}

func expireCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "expire KEY TTL",
		Short: "Refresh the expiry of KEY (cache backends only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := time.ParseDuration(args[1])
			if err != nil {
				return fmt.Errorf("invalid ttl: %w", err)
			}
			return c.withStorage(cmd.Context(), func(st server.Storage) error {
				found, err := st.Expire(cmd.Context(), args[0], ttl)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("%s: not found", args[0])
				}
				return nil
			})
		},
	}
}
