// Package main hosts the youdub CLI entrypoint and command graph.
//
// `youdub run` dubs every video behind one or more URLs through the fleet
// orchestrator; the per-stage commands walk an existing root folder and run
// a single stage wherever its inputs exist and its output does not. The
// remaining commands inspect state: the run ledger, configuration, external
// dependencies and the terminology table.
//
// Keep this package lean: collaborators are built in app.go from the loaded
// configuration, and everything else lives in internal packages.
package main
