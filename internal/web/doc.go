// Package web serves the server-rendered dashboard: task list and detail
// pages, the new-task and settings forms, and a server-sent event feed that
// keeps open pages current.
package web
