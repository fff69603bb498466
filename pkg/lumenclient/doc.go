// Package lumenclient creates configured Lumen API clients.
//
// The zero-config path needs only a base URL:
//
//	client, err := lumenclient.New(ctx, &lumen.Config{
//		BaseURL: "https://api.lumen.io",
//		Email:   "team@example.org",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	works := client.Entities("works")
//	page, err := works.Query().
//		Filter("publication_year", 2023).
//		Sort("cited_by_count", lumen.SortDesc).
//		Get(ctx)
//
// Configuration can also come from a YAML file plus LUMEN_* environment
// variables via NewFromFile. See the lumen package for query construction,
// pagination, caching, and error handling.
package lumenclient
