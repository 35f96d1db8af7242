package dynamodb

import (
	"strings"
	"testing"

	"github.com/dynabridge/dynabridge/pkg/dbservice"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_UpdateExpressionNeverTouchesKeys(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	properties.Property("key attributes never enter the update expression", prop.ForAll(
		func(fields []string) bool {
			changes := dbservice.Entity{"pk": "h", "sk": "r"}
			for _, f := range fields {
				changes[f] = "v"
			}

			_, names, _, err := buildUpdateExpression("pk", "sk", changes)
			if err == dbservice.ErrEmptyUpdate {
				// every generated field collided with a key name
				for _, f := range fields {
					if f != "pk" && f != "sk" {
						return false
					}
				}
				return true
			}
			if err != nil {
				return false
			}
			for _, field := range names {
				if field == "pk" || field == "sk" {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.RegexMatch(`[a-z]{1,8}`)),
	))

	properties.TestingRun(t)
}

func TestProperty_UpdateExpressionDeterministic(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	properties.Property("identical change sets yield identical expressions", prop.ForAll(
		func(fields []string) bool {
			changes := dbservice.Entity{}
			for _, f := range fields {
				changes[f] = "v"
			}
			if len(changes) == 0 {
				return true
			}

			first, _, _, err1 := buildUpdateExpression("id", "", changes)
			second, _, _, err2 := buildUpdateExpression("id", "", changes.Clone())
			if err1 != nil || err2 != nil {
				return err1 == err2
			}
			return first == second
		},
		gen.SliceOf(gen.RegexMatch(`[a-z]{1,8}`)),
	))

	properties.TestingRun(t)
}

func TestProperty_FilterExpressionTermPerQueryKey(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	properties.Property("one equality term per distinct query key", prop.ForAll(
		func(keys []string) bool {
			query := map[string]any{}
			for _, k := range keys {
				query[k] = "v"
			}

			expr, names, values, err := buildFilterExpression(dbservice.Filter{Query: query})
			if err != nil {
				return false
			}
			if len(query) == 0 {
				return expr == ""
			}
			terms := strings.Count(expr, " = ")
			return terms == len(query) && len(names) == len(query) && len(values) == len(query)
		},
		gen.SliceOf(gen.RegexMatch(`[a-z]{1,8}`)),
	))

	properties.TestingRun(t)
}
