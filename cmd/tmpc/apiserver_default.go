//go:build !local

package main

// defaultAPIServer is empty so telego talks to the public bot API.
const defaultAPIServer = ""
