package logging

// DebugEnable is a string passed in by the linker to control the build's
// inclusion of Debuggable sections.
var DebugEnable string

// Debuggable means that the build should include any debugging logic in it,
// such as logging the full output of install commands.
var Debuggable = DebugEnable != ""
