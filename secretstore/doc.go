/*
Package secretstore implements the persistent secret store of a wallet.

The store holds wallet addresses with their optional encrypted private keys,
encrypted HD seeds, the HDM bid used with the remote co-signing party and
the addresses of the HDM scheme, in which every address is built from a
hot, a cold and a remote public key.

All secrets are encrypted under one password by a SecretCodec. A password
seed, a copy of the first secret ever stored, allows checking a password
without decrypting real secrets. ChangePassword re-encrypts every secret in
a single transaction.

HDM addresses are provisioned in two steps. PrepareHDMAddresses stages
indexes holding the hot and cold keys, CompleteHDMAddresses adds the remote
key and the address once the remote party has answered.
*/
package secretstore
