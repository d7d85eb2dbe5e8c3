// Package processor turns downloaded package payloads into ready-to-use
// model packages.
//
// Payloads arrive either as plain ZIP archives or obfuscated with a
// repeating-key XOR transform. The pipeline classifies the payload by
// its leading bytes, decodes it when needed, extracts the archive with
// the fixed package password (falling back to passwordless extraction),
// and assembles the files into a package layout grouped by asset kind.
//
// # Usage
//
//	p := processor.NewDefaultProcessor()
//	pkg, err := p.ProcessPackage(payload)
//	if err != nil {
//		// payload could not be decoded or extracted
//	}
//	fmt.Println(pkg.ModelName)
package processor
