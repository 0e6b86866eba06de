// Package drivers implements the nosqlctl commands that need no connection.
package drivers

import (
	"fmt"
	"io"
	"strings"

	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/output"
	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/queryfile"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// List writes the registered drivers and their capabilities.
func List(w io.Writer, f output.Format, registry *adapter.Registry) error {
	ids := registry.ListRegistered()
	capabilities := make([]dbcapabilities.Capability, 0, len(ids))
	for _, id := range ids {
		c, err := registry.GetCapabilities(id)
		if err != nil {
			return err
		}
		capabilities = append(capabilities, c)
	}

	if f != output.Table {
		return output.Value(w, f, capabilities)
	}

	if len(capabilities) == 0 {
		_, err := fmt.Fprintln(w, "No drivers registered.")
		return err
	}

	tw := output.NewTabWriter(w)
	fmt.Fprintln(tw, "ID\tNAME\tMANAGERS\tTTL\tQUERY LANGUAGE\tPORT")
	for _, c := range capabilities {
		managers := make([]string, 0, len(c.Managers))
		for _, m := range c.Managers {
			managers = append(managers, string(m))
		}
		language := c.QueryLanguage
		if language == "" {
			language = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%d\n",
			c.ID, c.Name, strings.Join(managers, ","), c.SupportsTTL, language, c.DefaultPort)
	}
	return tw.Flush()
}

// ParseURI writes the connection details parsed from uri. The password is masked.
func ParseURI(w io.Writer, f output.Format, uri string) error {
	details, err := dbcapabilities.ParseConnectionString(uri)
	if err != nil {
		return err
	}
	if details.Password != "" {
		details.Password = "********"
	}

	if f != output.Table {
		return output.Value(w, f, details)
	}

	tw := output.NewTabWriter(w)
	fmt.Fprintf(tw, "Database type:\t%s\n", details.DatabaseType)
	fmt.Fprintf(tw, "Hosts:\t%s\n", strings.Join(details.Hosts, ", "))
	fmt.Fprintf(tw, "Port:\t%d\n", details.Port)
	fmt.Fprintf(tw, "Username:\t%s\n", details.Username)
	fmt.Fprintf(tw, "Password:\t%s\n", details.Password)
	fmt.Fprintf(tw, "Database:\t%s\n", details.DatabaseName)
	fmt.Fprintf(tw, "SSL:\t%t\n", details.SSL)
	if details.SSLMode != "" {
		fmt.Fprintf(tw, "SSL mode:\t%s\n", details.SSLMode)
	}
	for k, v := range details.Parameters {
		fmt.Fprintf(tw, "Parameter %s:\t%s\n", k, v)
	}
	return tw.Flush()
}

// Translate renders the query file in the driver's native language. Delete renders
// the delete form of the same file.
func Translate(w io.Writer, f output.Format, registry *adapter.Registry, driver, path string, asDelete bool) error {
	translator, err := registry.Translator(driver)
	if err != nil {
		return err
	}
	file, err := queryfile.Read(path)
	if err != nil {
		return err
	}

	var native adapter.NativeQuery
	if asDelete {
		q, err := file.DeleteQuery()
		if err != nil {
			return err
		}
		native, err = translator.TranslateDelete(q)
		if err != nil {
			return err
		}
	} else {
		q, err := file.SelectQuery()
		if err != nil {
			return err
		}
		native, err = translator.TranslateSelect(q)
		if err != nil {
			return err
		}
	}

	if f != output.Table {
		return output.Value(w, f, native)
	}
	fmt.Fprintf(w, "-- %s\n%s\n", native.Language, native.Statement)
	if len(native.Params) > 0 {
		fmt.Fprintln(w, "-- params")
		return output.Value(w, output.YAML, native.Params)
	}
	return nil
}
