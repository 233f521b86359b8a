// Parses image references given on the command line.
//
// A reference has the form "repository[:tag]". The tag defaults to "latest".
// Parsing follows the distribution reference grammar, so repository names are
// validated the same way registries validate them. References that name a
// registry host or pin a digest are rejected; the registry is chosen by
// configuration and images are always resolved through a tag.
//
// Example usage:
//
//	ref, err := reference.Parse("alpine:3.20")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(ref.Repository, ref.Tag) // alpine 3.20
package reference
