//go:build local

package main

// defaultAPIServer points at a self-hosted bot API server, which lifts the
// 20 MiB download limit for the local deployment.
const defaultAPIServer = "http://127.0.0.1:8080"
