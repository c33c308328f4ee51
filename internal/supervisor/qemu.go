package supervisor

// Defaults mirror how the kernel image has always been booted for tests.
const (
	DefaultBinary        = "qemu-system-i386"
	DefaultImageFlag     = "-cdrom"
	DefaultPrompt        = "> "
	DefaultQuitDirective = "\x01cquit\n" // Ctrl-A c: switch to the monitor, then quit
)

// QEMUArgs returns the arguments that boot image with the console on stdio
// and the diagnostic serial port captured to logPath.
func QEMUArgs(image, imageFlag, logPath string, extra []string) []string {
	if imageFlag == "" {
		imageFlag = DefaultImageFlag
	}
	args := []string{
		"-nographic",
		"-serial", "mon:stdio",
		"-serial", "file:" + logPath,
		imageFlag, image,
	}
	return append(args, extra...)
}

// commandLine returns the binary and full argument list for the process.
func (o *Options) commandLine() (string, []string) {
	args := make([]string, 0, len(o.LeadingArgs)+8+len(o.ExtraArgs))
	args = append(args, o.LeadingArgs...)
	args = append(args, QEMUArgs(o.ImagePath, o.ImageFlag, o.LogPath, o.ExtraArgs)...)
	return o.Binary, args
}
