// Command inspect dumps the chat records of a badger directory as a table.
// The database is opened read-only and may be in use by a running server.
package main

import (
	"chatrooms/infrastructure/storage"
	"flag"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "", "Path to badger DB")
	prefix := flag.String("prefix", "", "Only show keys with this prefix (e.g. msg:)")
	flag.Parse()
	if *dbPath == "" {
		log.Fatal("-db is required")
	}

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "Detail"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	prefixes := storage.KeyPrefixes()
	if *prefix != "" {
		prefixes = []string{*prefix}
	}
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for _, p := range prefixes {
			for it.Seek([]byte(p)); it.ValidForPrefix([]byte(p)); it.Next() {
				item := it.Item()
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				record := storage.Describe(string(item.Key()), val)
				table.Append([]string{record.Key, record.Kind, record.Detail})
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
	table.Render()
}
