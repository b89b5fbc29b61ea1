// Package command builds database commands around user supplied fragments.
//
// Fragments are literal values typed by the user (a currentOp filter, an
// index specification). Builders splice them into the command document
// with object spread semantics: a fragment key that repeats a command key
// replaces its value but keeps the command's position.
package command

import (
	"tlog.app/go/errors"

	"github.com/mongood/shelldata/shelldata"
)

// ErrNotDocument is returned when a fragment is not a document.
var ErrNotDocument = errors.New("fragment must be a document")

// CurrentOp builds {currentOp: 1, ...filter, ns: ns}.
// An empty ns unsets the member, including one given by filter.
// A nil filter means no filter.
func CurrentOp(filter *shelldata.Value, ns string) (*shelldata.Value, error) {
	members := []shelldata.Member{
		shelldata.M("currentOp", shelldata.Int32(1)),
	}

	if filter != nil {
		fm, err := fragment(filter, "filter")
		if err != nil {
			return nil, err
		}

		for _, m := range fm {
			if ns == "" && m.Key == "ns" {
				continue
			}

			members = append(members, m)
		}
	}

	if ns != "" {
		members = append(members, shelldata.M("ns", shelldata.Text(ns)))
	}

	return shelldata.Document(members...), nil
}

// Namespace joins database and collection into "db.coll".
// It returns "" unless both are set.
func Namespace(database, collection string) string {
	if database == "" || collection == "" {
		return ""
	}

	return database + "." + collection
}

// CreateIndexes builds {createIndexes: collection, indexes: [spec]}.
func CreateIndexes(collection string, spec *shelldata.Value) (*shelldata.Value, error) {
	if collection == "" {
		return nil, errors.New("collection name is required")
	}

	if _, err := fragment(spec, "index spec"); err != nil {
		return nil, err
	}

	return shelldata.Document(
		shelldata.M("createIndexes", shelldata.Text(collection)),
		shelldata.M("indexes", shelldata.Array(spec)),
	), nil
}

// DefaultIndexSpec returns the index specification offered for editing: {background: true}.
func DefaultIndexSpec() *shelldata.Value {
	return shelldata.Document(shelldata.M("background", shelldata.Bool(true)))
}

func fragment(v *shelldata.Value, what string) ([]shelldata.Member, error) {
	members, err := v.Members()
	if err != nil {
		return nil, errors.Wrap(ErrNotDocument, "%s: got %v", what, v.Kind())
	}

	return members, nil
}
