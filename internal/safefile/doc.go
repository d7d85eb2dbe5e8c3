// Package safefile provides transactional file staging for item
// downloads.
//
// All files of an item are written to a staging directory under
// {outputRoot}/.temp/{itemID} while the previously committed version of
// the item, if any, waits aside as a {dir}_back backup. Commit promotes
// the staging directory with a single rename and discards the backup;
// Rollback discards the staged files and puts the backup back. The
// committed directory therefore only ever holds a complete version of
// the item.
package safefile
