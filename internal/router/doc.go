// Package router maps push notifications to refreshes of the cached
// resources. Reactions are looked up by message type, so a new notification
// type is one On call.
package router
