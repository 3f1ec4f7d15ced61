// Hashctl builds, evaluates and benchmarks hash classification rules.
//
// Usage:
//
//	hashctl eval --rule rule.toml --data 01020304
//	hashctl eval --rule sym.toml --flow 10.0.0.1:1234,10.0.0.2:80,6
//	hashctl mkset --in backends.toml --out backends.set
//	hashctl dump --rule rule.toml
//	hashctl bench --workers 8 --n 1000000
//
// Environment (also read from a .env file):
//
//	HASHCTL_ENVIRONMENT    dev or prod; selects the logger (default: prod)
//	HASHCTL_SET_DIR        directory of *.set files loaded by eval and dump
//	HASHCTL_BENCH_WORKERS  default worker count for bench
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
