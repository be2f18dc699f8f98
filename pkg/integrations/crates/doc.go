// Package crates provides an HTTP client for the crates.io API.
//
// Only crate-level state is fetched: the highest published version
// (max_version), which is what a workspace needs to line its manifests up
// with the registry.
//
//	client := crates.NewClient(backend, time.Hour)
//	info, err := client.FetchCrate(ctx, "serde", false)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(info.Name, info.MaxVersion)
//
// Responses are cached in the given backend; pass refresh=true to bypass it.
// Every request carries [UserAgent] as crates.io policy requires.
package crates
