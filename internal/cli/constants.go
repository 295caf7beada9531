package cli

// Default values for CLI output.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// DotEnvFile is the dotenv file read from the working directory.
	DotEnvFile = ".env"
)
