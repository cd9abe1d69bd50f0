package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/dusk-indust/a2abridge/internal/ident"
)

// runUUID implements the uuid subcommand:
//
//	a2abridge uuid [-v 1|4|5] [-ns dns] [-name x] [-n count]
//	a2abridge uuid validate <id>
//	a2abridge uuid canonical <id>
//	a2abridge uuid encode <id>
//	a2abridge uuid decode <compact>
//	a2abridge uuid equal <a> <b>
func runUUID(args []string, w io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "validate":
			return uuidArgs(args, 1, func(a []string) error {
				fmt.Fprintln(w, ident.Validate(a[0]))
				return nil
			})
		case "canonical":
			return uuidArgs(args, 1, func(a []string) error {
				s, err := ident.Canonicalize(a[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(w, s)
				return nil
			})
		case "encode":
			return uuidArgs(args, 1, func(a []string) error {
				id, err := ident.Parse(a[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(w, ident.EncodeCompact(id))
				return nil
			})
		case "decode":
			return uuidArgs(args, 1, func(a []string) error {
				id, err := ident.DecodeCompact(a[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(w, id)
				return nil
			})
		case "equal":
			return uuidArgs(args, 2, func(a []string) error {
				fmt.Fprintln(w, ident.Equal(a[0], a[1]))
				return nil
			})
		}
	}
	return generateUUIDs(args, w)
}

func uuidArgs(args []string, want int, fn func([]string) error) error {
	if len(args)-1 != want {
		return fmt.Errorf("uuid %s: want %d argument(s), got %d", args[0], want, len(args)-1)
	}
	return fn(args[1:])
}

func generateUUIDs(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("uuid", flag.ContinueOnError)
	fs.SetOutput(w)
	ver := fs.Int("v", 4, "identifier version: 1, 4 or 5")
	ns := fs.String("ns", "dns", "namespace for version 5: dns, url, oid, x500 or a uuid")
	name := fs.String("name", "", "name for version 5")
	count := fs.Int("n", 1, "number of identifiers to print")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("uuid: unknown command %q", fs.Arg(0))
	}
	if *count < 1 {
		return errors.New("uuid: -n must be at least 1")
	}

	var next func() (uuid.UUID, error)
	switch *ver {
	case 1:
		next = ident.NewTimeBased
	case 4:
		next = func() (uuid.UUID, error) { return ident.NewRandom(), nil }
	case 5:
		if *name == "" {
			return errors.New("uuid: -v 5 needs -name")
		}
		space, err := ident.ParseNamespace(*ns)
		if err != nil {
			return err
		}
		next = func() (uuid.UUID, error) { return ident.NewDeterministic(space, *name), nil }
	default:
		return fmt.Errorf("uuid: unsupported version %d", *ver)
	}

	for range *count {
		id, err := next()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, id)
	}
	return nil
}
