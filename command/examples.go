package command

import (
	"github.com/mongood/shelldata/shelldata"
)

// Example is a named currentOp filter preset.
type Example struct {
	Name   string
	Filter string
}

// Examples lists the built-in currentOp filters in display order.
var Examples = []Example{
	{"Slow operations", `{active: true, microsecs_running: {$gte: 100000}}`},
	{"Queries not using any index", `{op: "query", planSummary: "COLLSCAN"}`},
	{"Write operations", `{$or: [{op: {$in: ["insert", "update", "remove"]}}, {"command.findandmodify": {$exists: true}}]}`},
	{"Waiting for a Lock", `{waitingForLock: true}`},
	{"Operations with no yields", `{numYields: 0, waitingForLock: false}`},
	{"Operations with high yields num", `{numYields: {$gte: 100}}`},
	{"Indexing operations", `{$or: [{op: "command", "command.createIndexes": {$exists: true}}, {op: "none", msg: /^Index Build/}]}`},
}

// ExampleFilter returns the parsed filter of the named example.
func ExampleFilter(name string) (*shelldata.Value, bool) {
	for _, e := range Examples {
		if e.Name == name {
			v, err := shelldata.Parse(e.Filter)
			if err != nil {
				panic(err)
			}

			return v, true
		}
	}

	return nil, false
}
