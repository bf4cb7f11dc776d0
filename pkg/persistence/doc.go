// Package persistence keeps a local cache of routes fetched from the
// configuration service.
//
// Each route is stored as an indented JSON file named after its ID, so a
// cached route can be inspected and edited by hand before it is pushed
// back with "route push".
package persistence
