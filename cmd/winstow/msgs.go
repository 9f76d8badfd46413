package main

// Message constants
const (
	MsgShort = "Windows-native symlink farm manager inspired by GNU Stow"

	MsgLong = `winstow materializes the contents of packages (subtrees under a stow
directory) as relative symbolic links inside a target directory, and
reverses that operation. It preserves GNU Stow's folding discipline: a
whole subtree becomes a single directory link until a second package
needs entries under the same name, at which point the link is unfolded
into a real directory.

Symlink creation on Windows requires Developer Mode or an elevated
shell. All links are created with relative targets; stow and target
directories must live on the same volume.`

	MsgDryRun = "=== DRY RUN MODE - No changes will be made ==="

	MsgCompleted      = "%sed %d package(s)"
	MsgWouldComplete  = "Would %s %d package(s)"
	MsgPackageLine    = "%s %s: %d action(s)"
	MsgPackageNothing = "%s %s: nothing to do"

	MsgErrMultipleActions = "multiple actions specified; use only one of -S/--stow, -D/--delete, -R/--restow"
	MsgErrAdoptOverride   = "--adopt and --override are mutually exclusive"
	MsgErrDeleteModifiers = "--adopt and --override cannot be used with -D/--delete"
)
