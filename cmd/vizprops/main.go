// Command vizprops validates, describes and serves visualization property
// schemas.
package main

func main() {
	Execute()
}
