package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"fb2html/converter"
	"fb2html/state"
)

// activeConverter creates converter configured the way books will be converted.
func activeConverter(env *state.LocalEnv) *converter.Converter {
	return converter.New(converter.Options{
		Fb2Prefix:   env.Cfg.Converter.Fb2Prefix,
		ClassPrefix: env.Cfg.Converter.ClassPrefix,
		Extra:       env.Cfg.TagRules(),
	}, env.Log)
}

// writeRules outputs rules as aligned text table in lookup order.
func writeRules(w io.Writer, rules []converter.TagRule) error {

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tTO\tCLASS\tHANDLER")
	for _, r := range rules {
		to := r.To
		switch {
		case r.Drop:
			to = "(drop)"
		case len(to) == 0:
			to = "(same)"
		}
		class, handler := r.Class, ""
		if len(class) == 0 {
			class = "-"
		}
		if r.Handler != converter.HandlerNone {
			handler = r.Handler.String()
		} else {
			handler = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.From, to, class, handler)
	}
	return tw.Flush()
}

// Rules is "rules" command body.
func Rules(ctx *cli.Context) error {

	const (
		errPrefix = "rules: "
		errCode   = 1
	)

	env := ctx.Generic(state.FlagName).(*state.LocalEnv)
	rules := activeConverter(env).TagTranslate()

	if !ctx.Bool("json") {
		if err := writeRules(os.Stdout, rules); err != nil {
			return cli.Exit(fmt.Errorf("%sunable to write rules: %w", errPrefix, err), errCode)
		}
		return nil
	}

	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return cli.Exit(fmt.Errorf("%sunable to encode rules: %w", errPrefix, err), errCode)
	}
	if _, err := os.Stdout.Write(append(data, '\n')); err != nil {
		return cli.Exit(fmt.Errorf("%sunable to write rules: %w", errPrefix, err), errCode)
	}
	return nil
}
