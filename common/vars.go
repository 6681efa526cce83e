package common

// Version is overridden at build time with -ldflags "-X github.com/D4ZA1/Cryopay/common.Version=...".
var Version = "dev"

// PackageName is used as the metrics namespace and the default log service tag.
const PackageName = "cryopay"
