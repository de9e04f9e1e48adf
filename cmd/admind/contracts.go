package main

import "github.com/matthewbaird/adminkit/internal/schema"

// demoContracts declares the built-in screens. A screen is pure
// configuration: a contract plus whatever actions it registers.
func demoContracts() []*schema.Contract {
	address := schema.NewContract("address").
		Text("line1", schema.Label("Address Line 1")).
		Text("line2", schema.Optional(), schema.Label("Address Line 2")).
		Text("city").
		Text("state", schema.Rules("len=2")).
		Text("postal_code", schema.Rules("min=5,max=10")).
		Build()

	member := schema.NewContract("member").
		Text("name", schema.Rules("min=2,max=120")).
		Text("email", schema.Rules("email")).
		Select("status", []schema.Option{
			{Label: "Active", Value: "active"},
			{Label: "Suspended", Value: "suspended"},
			{Label: "Cancelled", Value: "cancelled"},
		}).
		Date("joined_at", schema.Optional()).
		Nested("address", address, schema.Optional()).
		Tags("interests", schema.Optional()).
		File("photo", schema.Optional()).
		Build()

	feature := schema.NewContract("feature").
		Text("title", schema.Rules("min=2")).
		Textarea("description", schema.Optional()).
		Build()

	plan := schema.NewContract("plan").
		Text("name", schema.Rules("min=2,max=80")).
		Number("price_cents", schema.Rules("min=0")).
		Select("billing_period", []schema.Option{
			{Label: "Monthly", Value: "monthly"},
			{Label: "Quarterly", Value: "quarterly"},
			{Label: "Annually", Value: "annually"},
		}).
		Switch("public", schema.Optional()).
		NestedArray("features", feature, schema.Optional()).
		Build()

	return []*schema.Contract{member, plan}
}
