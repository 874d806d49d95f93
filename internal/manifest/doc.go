// Package manifest resolves which version of each prebuilt component to
// fetch.
//
// Versions come from two kinds of files. A package.json (JSON with comments
// and trailing commas tolerated) supplies the versions the surrounding
// project already depends on. An optional Lua manifest, run in a sandboxed
// VM with a read-only platform table, can override them and set the base
// directory:
//
//	prebuilt = {
//	    base_dir = "third_party",
//	    components = {
//	        duckdb = "0.9.2",
//	        keytar = platform.when(not platform.is_windows, "7.9.0"),
//	    },
//	}
package manifest
