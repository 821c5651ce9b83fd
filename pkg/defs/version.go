package defs

// Version is the toolbox version reported by the wallet's getVersion call.
const Version = "1.0.0"
