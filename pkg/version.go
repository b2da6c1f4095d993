package chatmemo

// Version of the chatmemo application and its backup document format line.
const Version = "0.3.0"
