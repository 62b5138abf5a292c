// Package watch rebuilds the site when its sources change.
//
// The project root is watched recursively. Each change is matched against
// the watch groups; a matching group is debounced and then runs its task.
// Failed runs are logged and the watcher keeps going.
package watch
