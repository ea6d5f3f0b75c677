package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pior/rets"
	"github.com/pior/rets/metadata"
)

func (a *app) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and print the session capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *rets.Client) error {
				return a.printLogin(c.LoginInfo())
			})
		},
	}
}

func (a *app) systemCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "system",
		Short: "Print the METADATA-SYSTEM record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *rets.Client) error {
				sys, err := c.GetSystem(cmd.Context())
				if err != nil {
					return err
				}
				return a.printSystem(sys)
			})
		},
	}
}

func (a *app) resourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *rets.Client) error {
				res, err := c.GetResources(cmd.Context())
				if err != nil {
					return err
				}
				return a.printResources(res)
			})
		},
	}
}

func (a *app) classesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classes [resource]",
		Short: "List the classes of a resource, or of every resource",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *rets.Client) error {
				all, err := oneOrAll(cmd.Context(), args, c.GetClass, c.GetAllClass)
				if err != nil {
					return err
				}
				return a.printClasses(all)
			})
		},
	}
}

func (a *app) tablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables [resource class]",
		Short: "List the fields of a class, or of every class",
		Args:  pairOrNothing,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *rets.Client) error {
				all, err := pairOrAll(cmd.Context(), args, c.GetTable, c.GetAllTable)
				if err != nil {
					return err
				}
				return a.printTables(all)
			})
		},
	}
}

func (a *app) lookupsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lookups [resource]",
		Short: "List the lookups of a resource, or of every resource",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *rets.Client) error {
				all, err := oneOrAll(cmd.Context(), args, c.GetLookups, c.GetAllLookups)
				if err != nil {
					return err
				}
				return a.printLookups(all)
			})
		},
	}
}

func (a *app) lookupTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup-types [resource lookup]",
		Short: "List the values of a lookup, or of every lookup",
		Args:  pairOrNothing,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *rets.Client) error {
				all, err := pairOrAll(cmd.Context(), args, c.GetLookupTypes, c.GetAllLookupTypes)
				if err != nil {
					return err
				}
				return a.printLookupTypes(all)
			})
		},
	}
}

func (a *app) objectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "objects <resource>",
		Short: "List the media object types of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *rets.Client) error {
				objects, err := c.GetObjectMeta(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printObjects(objects)
			})
		},
	}
}

func (a *app) rawCommand() *cobra.Command {
	var (
		format string
		digest bool
	)
	cmd := &cobra.Command{
		Use:   "raw <type> [id]",
		Short: "Print a GetMetadata reply as received",
		Long: `raw sends a single GetMetadata request and prints the reply body.
The type may omit the METADATA- prefix (class, lookup_type, ...). The id defaults to 0.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := parseType(args[0])
			if err != nil {
				return err
			}
			id := metadata.IDRoot
			if len(args) == 2 {
				id = args[1]
			}

			return a.withClient(cmd.Context(), func(c *rets.Client) error {
				body, err := c.GetMetadata(cmd.Context(), typ, id, metadata.Format(strings.ToUpper(format)))
				if err != nil {
					return err
				}
				if !digest {
					_, err = a.out.Write(body)
					return err
				}
				return a.printDigests(body)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", string(metadata.FormatCompact), "reply format: COMPACT, COMPACT-DECODED or STANDARD-XML")
	cmd.Flags().BoolVar(&digest, "digest", false, "print a content digest per metadata element instead of the body (COMPACT only)")
	return cmd
}

// printDigests prints one line per METADATA-* element of a compact reply.
func (a *app) printDigests(body []byte) error {
	reply, err := metadata.ParseReply(body)
	if err != nil {
		return err
	}
	for _, kind := range metadata.Kinds {
		tables, err := reply.Tables(kind)
		if err != nil {
			return err
		}
		for _, t := range tables {
			fmt.Fprintf(a.out, "%s\t%d rows\t%s\n", t.Kind, len(t.Rows), digestHex(t.Digest))
		}
	}
	return nil
}

func parseType(s string) (metadata.Type, error) {
	s = strings.ToUpper(s)
	if !strings.HasPrefix(s, "METADATA-") {
		s = "METADATA-" + s
	}
	typ := metadata.Type(strings.ReplaceAll(s, "LOOKUPTYPE", "LOOKUP_TYPE"))
	if !typ.Valid() {
		return "", fmt.Errorf("unknown metadata type %q", s)
	}
	return typ, nil
}

func pairOrNothing(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 2 {
		return fmt.Errorf("%s takes either no argument or two, got %d", cmd.Name(), len(args))
	}
	return nil
}

// oneOrAll calls one with args[0], or all when there is no argument.
func oneOrAll[T any](ctx context.Context, args []string,
	one func(context.Context, string) (T, error),
	all func(context.Context) ([]T, error),
) ([]T, error) {
	if len(args) == 0 {
		return all(ctx)
	}
	v, err := one(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return []T{v}, nil
}

// pairOrAll calls one with args[0] and args[1], or all when there is no argument.
func pairOrAll[T any](ctx context.Context, args []string,
	one func(context.Context, string, string) (T, error),
	all func(context.Context) ([]T, error),
) ([]T, error) {
	if len(args) == 0 {
		return all(ctx)
	}
	v, err := one(ctx, args[0], args[1])
	if err != nil {
		return nil, err
	}
	return []T{v}, nil
}
