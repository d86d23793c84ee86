// Package validation scores primary picks with pluggable quality tests.
//
// Tests are looked up by name in a Registry built at configuration time.
// A Pipeline resolves every configured name eagerly, then runs the tests
// in lexicographic, case-insensitive order so that logs and results are
// reproducible regardless of configuration order. A pick is accepted only
// when every test passes; a pipeline with no tests accepts everything.
package validation
