// Command cadence runs the call coordination daemon and its management CLI.
package main
