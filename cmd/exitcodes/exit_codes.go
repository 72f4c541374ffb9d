package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred.
	ExitCodeGeneralError = 1

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: exit codes 2-5 are not standardized but are often used for common use cases; this tool uses 2-4 below.

	// ExitCodeModuleUnreadable indicates the compiled module file at --module-path could not be read.
	ExitCodeModuleUnreadable = 2

	// ExitCodeModulePublishRejected indicates the mock chain state rejected publication of the module under test.
	ExitCodeModulePublishRejected = 3

	// ExitCodeAbiPathUnreadable indicates the --abi-path file or directory could not be read or walked.
	ExitCodeAbiPathUnreadable = 4
)
