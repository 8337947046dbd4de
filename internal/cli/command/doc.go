// Package command defines the embedhttp-cli commands using urfave/cli/v2:
//
//   - root.go: the application, global flags and shared helpers
//   - http.go: get, post and watch, which talk HTTP to the server
//   - admin.go: the admin group, which talks to the admin socket
package command
